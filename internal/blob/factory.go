package blob

import (
	"context"
	"fmt"
)

// Config выбирает и настраивает драйвер хранилища.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open создает хранилище по конфигурации. Пустой драйвер означает fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFS(cfg.FSRoot)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
	}
}
