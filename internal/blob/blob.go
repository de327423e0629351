// Package blob stores order documents and photos behind a small S3-like interface.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver определяет реализацию хранилища.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

var (
	// ErrNotFound возвращается, если объекта с таким ключом нет.
	ErrNotFound = errors.New("blob not found")
	// ErrExists возвращается при повторной записи того же ключа.
	ErrExists = errors.New("blob already exists")
)

// PutOptions - необязательные параметры записи.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info описывает сохраненный объект.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"sizeBytes"`
	ContentType  string            `json:"contentType,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"lastModified"`
}

// Store - хранилище документов. Ключи создаются один раз и не перезаписываются.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Driver() Driver
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
