// "Тупой" клиент объектного хранилища: скачать вложение по ключу.
// Вся логика про картинки (ресайз, data-uri) — в Resolver ниже.

package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/reasoner-ai/pkg/config"
	"github.com/ilkoid/reasoner-ai/pkg/utils"
)

// Resolver определяет интерфейс разрешения вложений в data-uri.
// Используется для мокания в тестах и внедрения зависимостей.
type Resolver interface {
	// ResolveDataURI скачивает объект по ключу и возвращает base64
	// data-uri, пригодный для image части vision запроса.
	ResolveDataURI(ctx context.Context, key string) (string, error)
}

type Client struct {
	api     *minio.Client
	bucket  string
	imgProc config.ImageProcConfig
}

// Проверка что Client реализует Resolver
var _ Resolver = (*Client)(nil)

// New создает клиент, используя наш конфиг.
//
// imgProc задаёт даунскейл скачанных картинок перед кодированием в base64:
// vision-модели не нужны пиксели сверх max_width, а токены стоят денег.
func New(cfg config.S3Config, imgProc config.ImageProcConfig) (*Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		api:     minioClient,
		bucket:  cfg.Bucket,
		imgProc: imgProc,
	}, nil
}

// DownloadFile скачивает объект целиком в память.
func (c *Client) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ResolveDataURI скачивает картинку по ключу, ресайзит её до
// сконфигурированной ширины и кодирует в base64 data-uri.
//
// Алгоритм:
//  1. Скачиваем объект в память
//  2. Ресайзим (Lanczos3) и перекодируем в JPEG
//  3. Кодируем в "data:image/jpeg;base64,..."
func (c *Client) ResolveDataURI(ctx context.Context, key string) (string, error) {
	data, err := c.DownloadFile(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment '%s': %w", key, err)
	}

	quality := c.imgProc.Quality
	if quality == 0 {
		quality = 85
	}

	resized, err := utils.ResizeImage(data, c.imgProc.MaxWidth, quality)
	if err != nil {
		return "", fmt.Errorf("failed to process attachment '%s': %w", key, err)
	}

	utils.Debug("attachment resolved",
		"key", key,
		"original_bytes", len(data),
		"encoded_bytes", len(resized))

	return utils.JPEGDataURI(resized), nil
}
