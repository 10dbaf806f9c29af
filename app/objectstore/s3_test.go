package objectstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestKey(t *testing.T) {
	b := &ImageBucket{prefix: "images/"}
	if got := b.Key("abc123"); got != "images/abc123" {
		t.Errorf("Expected images/abc123, got %s", got)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"wrapped not found", fmt.Errorf("head: %w", &types.NotFound{}), true},
		{"bare 404", errors.New("operation error S3: HeadObject, https response error StatusCode: 404"), true},
		{"other", errors.New("access denied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewImageBucketRequiresBucket(t *testing.T) {
	if _, err := NewImageBucket(context.Background(), Options{}); err == nil {
		t.Error("Expected error without bucket")
	}
}
