package main

import (
	"fmt"

	"github.com/saworbit/ioprimer/internal/logging"
	"github.com/saworbit/ioprimer/pkg/filewrite"
)

func main() {
	const path = "./example.txt"

	logging.For("demo").Info("writing twice to ", path)
	filewrite.CreateFileWriteAll(path, []byte("Hello from write_all()!"))
	filewrite.CreateFileWrite(path, []byte("Hello from write()!"))

	fmt.Println("Hello Modules")
}
