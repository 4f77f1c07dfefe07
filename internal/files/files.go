/*
Copyright 2024 Fleetpay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package files reads uploaded payment sheets. It sniffs CSV versus JSON
// and hands each record over as a raw string-keyed row; header aliasing
// and value coercion happen downstream, so no column set is required
// here.
package files

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fleetpay/fleetpay/model"
)

// StoreFunc receives each parsed raw row together with its position in
// the upload.
type StoreFunc func(ctx context.Context, uploadID string, rowIndex int, row model.RawRow) error

// ReadUpload copies the uploaded data to a temp file, detects its type
// and feeds every row to store. It returns the upload ID and the number
// of rows read.
func ReadUpload(ctx context.Context, reader io.Reader, filename string, store StoreFunc) (string, int, error) {
	uploadID := model.GenerateUUIDWithSuffix("upload")

	tempFile, err := createAndPopulateTempFile(filename, reader)
	if err != nil {
		return "", 0, err
	}
	defer cleanupTempFile(tempFile)

	fileType, err := detectFileTypeFromTempFile(tempFile, filename)
	if err != nil {
		return "", 0, err
	}

	total, err := parseAndStoreRows(ctx, uploadID, tempFile, fileType, store)
	if err != nil {
		return "", 0, err
	}

	return uploadID, total, nil
}

func createAndPopulateTempFile(filename string, reader io.Reader) (*os.File, error) {
	tempFile, err := createTempFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error creating temporary file: %w", err)
	}

	if _, err := io.Copy(tempFile, reader); err != nil {
		return nil, fmt.Errorf("error copying upload data: %w", err)
	}

	if _, err := tempFile.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("error seeking temporary file: %w", err)
	}

	return tempFile, nil
}

func detectFileTypeFromTempFile(tempFile *os.File, filename string) (string, error) {
	header := make([]byte, 512)
	if _, err := tempFile.Read(header); err != nil && err != io.EOF {
		return "", fmt.Errorf("error reading file header: %w", err)
	}

	fileType, err := DetectFileType(header, filename)
	if err != nil {
		return "", fmt.Errorf("error detecting file type: %w", err)
	}

	if _, err := tempFile.Seek(0, 0); err != nil {
		return "", fmt.Errorf("error seeking temporary file: %w", err)
	}

	return fileType, nil
}

func parseAndStoreRows(ctx context.Context, uploadID string, reader io.Reader, fileType string, store StoreFunc) (int, error) {
	switch fileType {
	case "text/csv", "text/csv; charset=utf-8":
		return ProcessCSV(ctx, uploadID, reader, store)
	case "application/json":
		return ProcessJSON(ctx, uploadID, reader, store)
	default:
		return 0, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

func createTempFile(originalFilename string) (*os.File, error) {
	tempDir := filepath.Join(os.TempDir(), "fleetpay_uploads")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating temporary directory: %w", err)
	}

	prefix := fmt.Sprintf("%s_", filepath.Base(originalFilename))
	tempFile, err := os.CreateTemp(tempDir, prefix)
	if err != nil {
		return nil, fmt.Errorf("error creating temporary file: %w", err)
	}

	return tempFile, nil
}

func cleanupTempFile(file *os.File) {
	if file != nil {
		filename := file.Name()
		file.Close()
		if err := os.Remove(filename); err != nil {
			log.Printf("Error removing temporary file %s: %v", filename, err)
		}
	}
}

// DetectFileType resolves a MIME type from the extension first, falling
// back to content sniffing.
func DetectFileType(data []byte, filename string) (string, error) {
	if mimeType := DetectByExtension(filename); mimeType != "" {
		return mimeType, nil
	}
	return DetectByContent(data)
}

// DetectByExtension detects the MIME type by the file extension.
func DetectByExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return mime.TypeByExtension(ext)
}

// DetectByContent detects the MIME type based on the content of the file.
func DetectByContent(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)

	switch mimeType {
	case "application/octet-stream", "text/plain", "text/plain; charset=utf-8":
		return AnalyzeTextContent(data)
	case "text/csv; charset=utf-8":
		return "text/csv", nil
	default:
		return mimeType, nil
	}
}

// AnalyzeTextContent differentiates CSV from JSON from plain text.
func AnalyzeTextContent(data []byte) (string, error) {
	if LooksLikeCSV(data) {
		return "text/csv", nil
	}
	if json.Valid(data) {
		return "application/json", nil
	}
	return "text/plain", nil
}

// LooksLikeCSV checks whether the provided data looks like a CSV file:
// two or more lines with a consistent field count above one.
func LooksLikeCSV(data []byte) bool {
	lines := bytes.Split(data, []byte("\n"))
	if len(lines) < 2 {
		return false
	}

	fields := bytes.Count(lines[0], []byte(",")) + 1
	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		if bytes.Count(line, []byte(","))+1 != fields {
			return false
		}
	}

	return fields > 1
}

// ProcessCSV reads a CSV upload, mapping each record onto its header
// names. Short rows keep the columns they have; no column is required.
func ProcessCSV(ctx context.Context, uploadID string, reader io.Reader, store StoreFunc) (int, error) {
	csvReader := csv.NewReader(bufio.NewReader(reader))
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return 0, fmt.Errorf("error reading CSV headers: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var errs []error
	rowIndex := 0
	stored := 0

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("error reading row %d: %w", rowIndex+1, err))
			rowIndex++
			continue
		}

		row := make(model.RawRow, len(headers))
		for i, value := range record {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = strings.TrimSpace(value)
		}

		if err := store(ctx, uploadID, rowIndex, row); err != nil {
			errs = append(errs, fmt.Errorf("error storing row %d: %w", rowIndex+1, err))
		} else {
			stored++
		}
		rowIndex++

		if rowIndex%1000 == 0 {
			select {
			case <-ctx.Done():
				return stored, ctx.Err()
			default:
			}
		}
	}

	if len(errs) > 0 {
		return stored, fmt.Errorf("encountered %d errors while processing CSV: %v", len(errs), errs)
	}

	return stored, nil
}

// ProcessJSON reads a JSON array of objects, stringifying each value so
// the rows match what a CSV upload would produce.
func ProcessJSON(ctx context.Context, uploadID string, reader io.Reader, store StoreFunc) (int, error) {
	decoder := json.NewDecoder(reader)
	var records []map[string]interface{}
	if err := decoder.Decode(&records); err != nil {
		return 0, err
	}

	for i, record := range records {
		row := make(model.RawRow, len(record))
		for key, value := range record {
			switch v := value.(type) {
			case nil:
				row[key] = ""
			case string:
				row[key] = v
			case float64:
				row[key] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
			default:
				row[key] = fmt.Sprintf("%v", v)
			}
		}
		if err := store(ctx, uploadID, i, row); err != nil {
			return i, err
		}
	}

	return len(records), nil
}
