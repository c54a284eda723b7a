package s3fetch

import (
	"errors"
	"path/filepath"
	"strings"
)

const uriScheme = "s3://"

// IsS3URI reports whether path names an S3 object or prefix rather than a
// local file.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, uriScheme)
}

// ParseS3URI parses an S3 URI (s3://bucket/key) into bucket and key components.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	path := strings.TrimPrefix(uri, uriScheme)
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}

	return bucket, key, nil
}

// ParseObjectURI is ParseS3URI for URIs that must name a single object.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	bucket, key, err = ParseS3URI(uri)
	if err != nil {
		return "", "", err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", errors.New("invalid S3 URI: missing object key")
	}
	return bucket, key, nil
}

// localName converts an S3 key to a safe local filename.
func localName(key string) string {
	return filepath.Base(key)
}
