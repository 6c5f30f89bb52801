package attachment

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineRoundTrip(t *testing.T) {
	att, err := Inline{}.Put(context.Background(), "/tmp/xray.png", "image/png", []byte("pixels"))
	require.NoError(t, err)

	assert.NotEmpty(t, att.ID)
	assert.Equal(t, "xray.png", att.Name)
	assert.True(t, strings.HasPrefix(att.URL, "data:image/png;base64,"))

	ct, data, err := DecodeInline(att.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, []byte("pixels"), data)
}

func TestInlineDetectsContentType(t *testing.T) {
	att, err := Inline{}.Put(context.Background(), "note", "", []byte("plain words"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(att.URL, "data:text/plain; charset=utf-8;base64,"), att.URL)
}

func TestRejectsEmptyAndOversized(t *testing.T) {
	_, err := Inline{}.Put(context.Background(), "a", "", nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Inline{}.Put(context.Background(), "a", "", make([]byte, MaxSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecodeInlineErrors(t *testing.T) {
	for _, ref := range []string{"s3://b/k", "data:text/plain", "data:text/plain,abc", "data:text/plain;base64,@@"} {
		_, _, err := DecodeInline(ref)
		assert.Error(t, err, ref)
	}
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"scan.pdf":             "scan.pdf",
		"dir/sub/scan.pdf":     "scan.pdf",
		`C:\Users\me\bill.jpg`: "bill.jpg",
		"":                     "attachment",
		"/":                    "attachment",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanName(in), in)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Put(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3WithClient(fake, S3Config{Bucket: "records", Prefix: "/patients/"}, nil)

	att, err := store.Put(context.Background(), "invoice.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	key := aws.ToString(fake.input.Key)
	assert.Equal(t, "records", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "patients/"+att.ID+"/invoice.pdf", key)
	assert.Equal(t, "application/pdf", aws.ToString(fake.input.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(fake.input.ContentLength))
	assert.Equal(t, []byte("%PDF"), fake.body)
	assert.Equal(t, "s3://records/"+key, att.URL)
	assert.Equal(t, "invoice.pdf", att.Name)
}

func TestS3PutError(t *testing.T) {
	store := NewS3WithClient(&fakeS3{err: errors.New("denied")}, S3Config{Bucket: "records"}, nil)

	_, err := store.Put(context.Background(), "a.png", "", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}
