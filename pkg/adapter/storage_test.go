package adapter_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/raven/pkg/adapter"
)

func TestParseObjectURL(t *testing.T) {
	testCases := []struct {
		url    string
		bucket string
		key    string
		ok     bool
	}{
		{"gs://my-bucket/exports/raven.jsonl", "my-bucket", "exports/raven.jsonl", true},
		{"gs://my-bucket", "my-bucket", "", true},
		{"/tmp/raven.jsonl", "", "", false},
		{"s3://bucket/key", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			bucket, key, ok := adapter.ParseObjectURL(tc.url)
			gt.Equal(t, ok, tc.ok)
			gt.Equal(t, bucket, tc.bucket)
			gt.Equal(t, key, tc.key)
		})
	}
}
