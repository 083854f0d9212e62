package enums

import "fmt"

// DocumentBackend selects where rendered quotation documents are written.
type DocumentBackend string

const (
	DocumentBackendFile DocumentBackend = "file"
	DocumentBackendGCS  DocumentBackend = "gcs"
)

var validDocumentBackends = []DocumentBackend{
	DocumentBackendFile,
	DocumentBackendGCS,
}

// IsValid reports whether the backend is recognized.
func (b DocumentBackend) IsValid() bool {
	for _, candidate := range validDocumentBackends {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseDocumentBackend converts raw input into a DocumentBackend.
func ParseDocumentBackend(value string) (DocumentBackend, error) {
	for _, candidate := range validDocumentBackends {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document backend %q", value)
}
