package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"product-customizer/core"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// objectAPI is the subset of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Store struct {
	s3Client objectAPI
	bucket   string
	baseURL  string
}

// NewStore creates a new S3-based store. Previews are linked through
// publicBaseURL, or the bucket's virtual-hosted URL when it is empty.
func NewStore(bucketName, publicBaseURL string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return newStore(s3.NewFromConfig(cfg), bucketName, publicBaseURL)
}

func newStore(client objectAPI, bucketName, publicBaseURL string) *s3Store {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucketName)
	}
	return &s3Store{
		s3Client: client,
		bucket:   bucketName,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
	}
}

// objectKey joins prefix and id, rejecting ids that are not a single path
// element.
func objectKey(prefix, id string) (string, error) {
	if id == "" || id == "." || id == ".." {
		return "", fmt.Errorf("invalid id %q: must not be empty or a dot directory", id)
	}
	if path.Base(id) != id || strings.Contains(id, `\`) {
		return "", fmt.Errorf("invalid id %q: must not be a path", id)
	}
	return path.Join(prefix, id), nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}

func (s *s3Store) get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *s3Store) put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

// OrderStore implementation
func (s *s3Store) FindOrder(ctx context.Context, id string) (*core.Order, error) {
	log := logrus.WithField("order_id", id)
	key, err := objectKey("orders", id)
	if err != nil {
		log.Warn("Order with specified ID not found")
		return nil, fmt.Errorf("order with id %s: %w", id, core.ErrOrderNotFound)
	}
	data, err := s.get(ctx, key+".json")
	if err != nil {
		if isNotFound(err) {
			log.Warn("Order with specified ID not found")
			return nil, fmt.Errorf("order with id %s: %w", id, core.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %v", id, err)
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order data: %v", err)
	}
	log.Debug("Order retrieved successfully")
	return &order, nil
}

func (s *s3Store) SaveOrder(ctx context.Context, order *core.Order) error {
	key, err := objectKey("orders", order.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %v", err)
	}
	if err := s.put(ctx, key+".json", "application/json", data); err != nil {
		return fmt.Errorf("failed to save order %s: %v", order.ID, err)
	}
	logrus.WithField("order_id", order.ID).Info("Order saved successfully")
	return nil
}

// PreviewStore implementation
func (s *s3Store) UploadPreview(ctx context.Context, key string, png []byte) (string, error) {
	if err := core.ValidatePreviewKey(key); err != nil {
		return "", err
	}
	objKey := path.Join("previews", key)
	if err := s.put(ctx, objKey, "image/png", png); err != nil {
		return "", fmt.Errorf("failed to upload preview %s: %v", key, err)
	}
	logrus.WithFields(logrus.Fields{
		"key":         objKey,
		"bucket":      s.bucket,
		"data_length": len(png),
	}).Info("Preview uploaded successfully")
	return s.baseURL + "/" + objKey, nil
}

func (s *s3Store) FindPreview(ctx context.Context, key string) ([]byte, error) {
	if err := core.ValidatePreviewKey(key); err != nil {
		return nil, fmt.Errorf("preview %s: %w", key, core.ErrPreviewNotFound)
	}
	data, err := s.get(ctx, path.Join("previews", key))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("preview %s: %w", key, core.ErrPreviewNotFound)
		}
		return nil, fmt.Errorf("failed to get preview %s: %v", key, err)
	}
	return data, nil
}

// CustomizationStore implementation
func (s *s3Store) SaveCustomization(ctx context.Context, c *core.Customization) error {
	prefix, err := objectKey("customizations", c.OrderID)
	if err != nil {
		return err
	}
	id, createdAt := c.ID, c.CreatedAt
	if id == "" {
		id = ulid.Make().String()
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	key, err := objectKey(prefix, id)
	if err != nil {
		return err
	}

	stored := *c
	stored.ID, stored.CreatedAt = id, createdAt
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal customization: %v", err)
	}
	if err := s.put(ctx, key+".json", "application/json", data); err != nil {
		return fmt.Errorf("failed to save customization %s: %v", id, err)
	}

	c.ID, c.CreatedAt = id, createdAt
	logrus.WithFields(logrus.Fields{
		"order_id":         c.OrderID,
		"customization_id": c.ID,
	}).Info("Customization saved successfully")
	return nil
}

func (s *s3Store) ListCustomizations(ctx context.Context, orderID string) ([]*core.Customization, error) {
	prefix, err := objectKey("customizations", orderID)
	if err != nil {
		return nil, err
	}

	out := []*core.Customization{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list customizations for order %s: %v", orderID, err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			data, err := s.get(ctx, key)
			if err != nil {
				logrus.WithField("key", key).WithError(err).Warn("Failed to get customization, skipping")
				continue
			}
			var c core.Customization
			if err := json.Unmarshal(data, &c); err != nil {
				logrus.WithField("key", key).WithError(err).Warn("Failed to unmarshal customization, skipping")
				continue
			}
			out = append(out, &c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
