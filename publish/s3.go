package publish

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"dataingest/storage"
	"dataingest/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// PutObjectAPI is the part of the S3 client the mirror needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the AWS client of the mirror.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// S3Mirror uploads the archive and the canonical table to
// s3://{bucket}/{prefix}/{dataset}/{dataType}/{YYYY-MM-DD}/{file}, mirroring the local layout.
type S3Mirror struct {
	client PutObjectAPI
	fs     afero.Fs
	bucket string
	prefix string
	log    *utils.CustomLogger
}

// NewS3Mirror loads the AWS configuration (static credentials when given, the default chain otherwise)
// and creates the mirror.
func NewS3Mirror(ctx context.Context, fs afero.Fs, opts S3Options, log *utils.CustomLogger) (*S3Mirror, error) {
	var loadOptions []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOptions = append(loadOptions, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		// Last parameter is session token, usually empty
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewS3MirrorWithClient(s3.NewFromConfig(awsConfig), fs, opts.Bucket, opts.Prefix, log), nil
}

// NewS3MirrorWithClient creates the mirror around an existing client.
func NewS3MirrorWithClient(client PutObjectAPI, fs afero.Fs, bucket, prefix string, log *utils.CustomLogger) *S3Mirror {
	return &S3Mirror{client: client, fs: fs, bucket: bucket, prefix: prefix, log: log.Named("s3")}
}

func (m *S3Mirror) Name() string {
	return "s3"
}

// Key returns the object key of a local artifact.
func (m *S3Mirror) Key(artifacts Artifacts, localPath string) string {
	return path.Join(m.prefix, artifacts.DatasetName, artifacts.DataType,
		artifacts.Date.Format(storage.DateLayout), filepath.Base(localPath))
}

// Publish uploads the archive first and the table second.
func (m *S3Mirror) Publish(ctx context.Context, artifacts Artifacts) error {
	for _, localPath := range []string{artifacts.ArchivePath, artifacts.TablePath} {
		if err := m.upload(ctx, artifacts, localPath); err != nil {
			return err
		}
	}
	return nil
}

func (m *S3Mirror) upload(ctx context.Context, artifacts Artifacts, localPath string) error {
	file, err := m.fs.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", localPath, err)
	}

	key := m.Key(artifacts, localPath)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", localPath, m.bucket, key, err)
	}
	m.log.Info("Uploaded to S3", zap.String("bucket", m.bucket), zap.String("key", key),
		zap.Int64("bytes", info.Size()))
	return nil
}
