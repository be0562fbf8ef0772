package storage

import (
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestNewMinIOStorageValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  MinIOConfig
	}{
		{name: "no endpoint", cfg: MinIOConfig{AccessKey: "a", SecretKey: "s"}},
		{name: "no access key", cfg: MinIOConfig{Endpoint: "localhost:9000", SecretKey: "s"}},
		{name: "no secret key", cfg: MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a"}},
	}
	for _, tc := range cases {
		if _, err := NewMinIOStorage(tc.cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	s, err := NewMinIOStorage(MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Region: "eu-west-1"})
	if err != nil {
		t.Fatalf("new storage failed: %v", err)
	}
	if s.region != "eu-west-1" {
		t.Fatalf("region not kept: %q", s.region)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatalf("NoSuchKey must be not found")
	}
	if !isNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}) {
		t.Fatalf("404 must be not found")
	}
	if isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}) {
		t.Fatalf("access denied is not a missing object")
	}
	if isNotFound(errors.New("dial tcp: refused")) {
		t.Fatalf("transport errors are not a missing object")
	}
}
