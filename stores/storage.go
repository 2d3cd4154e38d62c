package stores

import (
	"os"
	"product-customizer/core"
	"product-customizer/stores/aws"
	"product-customizer/stores/filesystem"
	"product-customizer/stores/memory"
	"product-customizer/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// DefaultPublicBaseURL is where previews are served when PUBLIC_BASE_URL is
// not set.
const DefaultPublicBaseURL = "http://localhost:3002"

// Store is a union interface that includes all store types.
type Store interface {
	core.OrderStore
	core.PreviewStore
	core.CustomizationStore
}

// PublicBaseURL returns the externally visible base URL of this server.
func PublicBaseURL() string {
	if u := os.Getenv("PUBLIC_BASE_URL"); u != "" {
		return u
	}
	return DefaultPublicBaseURL
}

func GetStore() Store {
	storageType := os.Getenv("STORAGE_TYPE")
	baseURL := PublicBaseURL()
	var store Store

	storageField := logrus.Fields{
		"storageType": storageType,
		"baseURL":     baseURL,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data" // Default path
		}
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath, baseURL)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "customizer.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName, baseURL)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = bucketName
		store = aws.NewStore(bucketName, os.Getenv("S3_PUBLIC_BASE_URL"))
	default:
		store = memory.NewStore(baseURL)
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
