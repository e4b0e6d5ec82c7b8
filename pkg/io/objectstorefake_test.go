package io

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"sync"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type ObjectStoreFake struct {
	mutex   sync.Mutex
	objects map[string][]byte
}

func (fake *ObjectStoreFake) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	b, err := ioutil.ReadAll(data)
	if err != nil {
		return err
	}
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if fake.objects == nil {
		fake.objects = map[string][]byte{}
	}
	fake.objects[bucket+"/"+key] = b
	return nil
}

func (fake *ObjectStoreFake) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	data, found := fake.objects[bucket+"/"+key]
	if !found {
		return nil, &ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

// s3Fake implements the two S3 calls the object store makes; every other
// method panics through the nil embedded interface.
type s3Fake struct {
	s3iface.S3API
	store ObjectStoreFake
}

func (fake *s3Fake) PutObject(
	input *s3.PutObjectInput,
) (*s3.PutObjectOutput, error) {
	if err := fake.store.PutObject(
		*input.Bucket,
		*input.Key,
		input.Body,
	); err != nil {
		return nil, err
	}
	return &s3.PutObjectOutput{}, nil
}

func (fake *s3Fake) GetObject(
	input *s3.GetObjectInput,
) (*s3.GetObjectOutput, error) {
	body, err := fake.store.GetObject(*input.Bucket, *input.Key)
	if err != nil {
		return nil, awserr.New(
			s3.ErrCodeNoSuchKey,
			fmt.Sprintf("no such key: %s", *input.Key),
			nil,
		)
	}
	return &s3.GetObjectOutput{Body: body}, nil
}
