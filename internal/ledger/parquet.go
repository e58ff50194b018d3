package ledger

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"rdxflow/config"
	"rdxflow/internal/models"
	"rdxflow/logger"
)

// summaryParquetRecord is the on-disk schema of one ledger row.
type summaryParquetRecord struct {
	TradeDate      string  `parquet:"name=trade_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ticker         string  `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8"`
	Expiry         string  `parquet:"name=expiry, type=BYTE_ARRAY, convertedtype=UTF8"`
	FutureOI       float64 `parquet:"name=future_oi, type=DOUBLE"`
	FutureOIChange float64 `parquet:"name=future_oi_change, type=DOUBLE"`
	TotalCallOI    float64 `parquet:"name=total_call_oi, type=DOUBLE"`
	TotalPutOI     float64 `parquet:"name=total_put_oi, type=DOUBLE"`
	PCR            float64 `parquet:"name=pcr, type=DOUBLE"`
}

// memFile adapts an in-memory buffer to the parquet-go source interface so
// files can be built without touching local disk before the S3 upload.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// S3Exporter writes ledger batches as date-partitioned Parquet objects.
// It complements the queryable Store backends: the Parquet copy feeds
// offline historical-trend analysis, not the dashboard read path.
type S3Exporter struct {
	cfg    config.S3Config
	client *s3.Client
	log    *logger.Entry
}

// NewS3Exporter configures the AWS client from the ledger config, preferring
// static credentials when both keys are present.
func NewS3Exporter(ctx context.Context, cfg config.S3Config) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 ledger: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	return &S3Exporter{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg),
		log:    logger.GetLogger().WithComponent("s3_exporter"),
	}, nil
}

// Export builds one Parquet file for the batch and uploads it under
// <prefix>/trade_date=<date>/part-<uuid>.parquet.
func (e *S3Exporter) Export(ctx context.Context, tradeDate string, summaries []models.InstrumentSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	file := newMemFile()
	pw, err := writer.NewParquetWriter(file, new(summaryParquetRecord), 1)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, s := range summaries {
		rec := summaryParquetRecord{
			TradeDate:      tradeDate,
			Ticker:         s.Ticker,
			Expiry:         s.Expiry,
			FutureOI:       s.FutureOI,
			FutureOIChange: s.FutureOIChange,
			TotalCallOI:    s.TotalCallOI,
			TotalPutOI:     s.TotalPutOI,
			PCR:            s.PCR,
		}
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}

	key := e.objectKey(tradeDate)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(file.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	e.log.WithFields(logger.Fields{
		"bucket": e.cfg.Bucket,
		"key":    key,
		"rows":   len(summaries),
	}).Info("ledger batch exported")
	return nil
}

func (e *S3Exporter) objectKey(tradeDate string) string {
	prefix := strings.Trim(e.cfg.Prefix, "/")
	name := fmt.Sprintf("trade_date=%s/part-%s.parquet", tradeDate, uuid.NewString())
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
