package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"newsmint/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveWritesJSONSnapshot(t *testing.T) {
	putter := &fakePutter{}
	archive := newS3Archive(putter, "news-bucket", "archive")

	a := &types.Article{ID: primitive.NewObjectID(), Title: "Hello", URL: "https://example.com/hello"}
	require.NoError(t, archive.Archive(context.Background(), a))

	require.Len(t, putter.inputs, 1)
	in := putter.inputs[0]
	assert.Equal(t, "news-bucket", aws.ToString(in.Bucket))
	assert.Equal(t, "archive/articles/"+a.ID.Hex()+".json", aws.ToString(in.Key))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))

	var got types.ArticleResponse
	require.NoError(t, json.Unmarshal(putter.bodies[0], &got))
	assert.Equal(t, a.ID.Hex(), got.ID)
	assert.Equal(t, "Hello", got.Title)
}

func TestArchiveWrapsUploadError(t *testing.T) {
	archive := newS3Archive(&fakePutter{err: errors.New("denied")}, "b", "")

	err := archive.Archive(context.Background(), &types.Article{ID: primitive.NewObjectID()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}
