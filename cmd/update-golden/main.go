package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sparkwin/wlscan/scanner"
)

func main() {
	// Paths are relative to the repository root
	inputs, err := filepath.Glob("scanner/testdata/*.xml")
	if err != nil {
		log.Fatalf("Failed to glob files: %v", err)
	}

	for _, inputFile := range inputs {
		outputFile := strings.TrimSuffix(inputFile, ".xml") + "_golden.zig"

		fmt.Printf("Processing %s -> %s\n", inputFile, outputFile)
		f, err := os.Open(inputFile)
		if err != nil {
			log.Printf("Failed to open input file %s: %v", inputFile, err)
			continue
		}
		protocols, perr := scanner.Parse(f, inputFile)
		f.Close()
		if perr != nil {
			log.Printf("Parse failed for %s: %v", inputFile, perr)
			continue
		}

		var buf bytes.Buffer
		em := scanner.NewEmitter(&buf)
		if err := em.Emit(protocols); err != nil {
			log.Printf("Emit failed for %s: %v", inputFile, err)
			continue
		}

		if err := os.WriteFile(outputFile, buf.Bytes(), 0644); err != nil {
			log.Printf("Failed to write output file %s: %v", outputFile, err)
			continue
		}
	}

	fmt.Println("Done. Golden files updated.")
}
