// Package archive writes fetched market data to S3 as parquet files, one
// object per fetch. Archiving is best effort: a failed upload is logged and
// never fails the command that triggered it.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "tradeflow/config"
	"tradeflow/logger"
	"tradeflow/models"
)

// candleRecord is the parquet schema for archived candlesticks.
type candleRecord struct {
	Exchange string  `parquet:"name=exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	Market   string  `parquet:"name=market, type=BYTE_ARRAY, convertedtype=UTF8"`
	Interval string  `parquet:"name=interval, type=BYTE_ARRAY, convertedtype=UTF8"`
	Open     float64 `parquet:"name=open, type=DOUBLE"`
	High     float64 `parquet:"name=high, type=DOUBLE"`
	Low      float64 `parquet:"name=low, type=DOUBLE"`
	Close    float64 `parquet:"name=close, type=DOUBLE"`
	Volume   float64 `parquet:"name=volume, type=DOUBLE"`
	Time     int64   `parquet:"name=time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// marketRecord is the parquet schema for archived market lists.
type marketRecord struct {
	Exchange         string  `parquet:"name=exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	BaseCoin         string  `parquet:"name=base_coin, type=BYTE_ARRAY, convertedtype=UTF8"`
	MarketCoin       string  `parquet:"name=market_coin, type=BYTE_ARRAY, convertedtype=UTF8"`
	Market           string  `parquet:"name=market, type=BYTE_ARRAY, convertedtype=UTF8"`
	MinimumTradeSize float64 `parquet:"name=minimum_trade_size, type=DOUBLE"`
	FetchedAt        int64   `parquet:"name=fetched_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// bookLevelRecord is the parquet schema for archived order books, one row
// per level per side.
type bookLevelRecord struct {
	Exchange  string  `parquet:"name=exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	Market    string  `parquet:"name=market, type=BYTE_ARRAY, convertedtype=UTF8"`
	Side      string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level     int32   `parquet:"name=level, type=INT32"`
	Rate      float64 `parquet:"name=rate, type=DOUBLE"`
	Quantity  float64 `parquet:"name=quantity, type=DOUBLE"`
	FetchedAt int64   `parquet:"name=fetched_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// memFileWriter buffers a parquet file in memory; uploads go straight from
// the buffer to S3.
type memFileWriter struct{ buffer *bytes.Buffer }

func newMemFileWriter() *memFileWriter { return &memFileWriter{buffer: &bytes.Buffer{}} }

func (m *memFileWriter) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFileWriter) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFileWriter) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFileWriter) Read([]byte) (int, error)                  { return 0, nil }
func (m *memFileWriter) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFileWriter) Close() error                              { return nil }
func (m *memFileWriter) Bytes() []byte                             { return m.buffer.Bytes() }

// Writer uploads parquet snapshots of fetched data to one S3 bucket.
type Writer struct {
	s3Client *s3.Client
	bucket   string
	prefix   string
	log      *logger.Entry
}

// New builds an archive writer from the storage configuration. It fails when
// AWS configuration can't be loaded; enablement is the caller's decision.
func New(ctx context.Context, cfg appconfig.S3Config) (*Writer, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Writer{
		s3Client: s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		log:      logger.GetLogger().WithComponent("archive"),
	}, nil
}

func (w *Writer) objectKey(kind, exchange, discriminator string, t time.Time) string {
	key := fmt.Sprintf("%s/%s/%s/%s-%s.parquet",
		kind, exchange, t.UTC().Format("2006/01/02"), discriminator, uuid.New().String())
	if w.prefix != "" {
		key = w.prefix + "/" + key
	}
	return key
}

// StoreCandlesticks archives one candlestick fetch as a parquet object.
func (w *Writer) StoreCandlesticks(ctx context.Context, exchange, market, interval string, candles []models.Candlestick) error {
	if len(candles) == 0 {
		return nil
	}

	mw := newMemFileWriter()
	pw, err := writer.NewParquetWriter(mw, new(candleRecord), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, c := range candles {
		rec := candleRecord{
			Exchange: exchange,
			Market:   market,
			Interval: interval,
			Open:     c.Open,
			High:     c.High,
			Low:      c.Low,
			Close:    c.Close,
			Volume:   c.Volume,
			Time:     c.Time.UnixMilli(),
		}
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}

	key := w.objectKey("candlesticks", exchange, market+"-"+interval, time.Now())
	return w.upload(ctx, key, mw.Bytes(), len(candles))
}

// StoreMarkets archives one market list fetch as a parquet object.
func (w *Writer) StoreMarkets(ctx context.Context, exchange string, markets []models.Market) error {
	if len(markets) == 0 {
		return nil
	}

	now := time.Now()
	mw := newMemFileWriter()
	pw, err := writer.NewParquetWriter(mw, new(marketRecord), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, m := range markets {
		rec := marketRecord{
			Exchange:         m.Exchange,
			BaseCoin:         m.BaseCoin,
			MarketCoin:       m.MarketCoin,
			Market:           m.Market,
			MinimumTradeSize: m.MinimumTradeSize,
			FetchedAt:        now.UnixMilli(),
		}
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}

	key := w.objectKey("markets", exchange, "markets", now)
	return w.upload(ctx, key, mw.Bytes(), len(markets))
}

// StoreOrderbook archives one order book fetch as a parquet object, bids and
// asks flattened into level rows.
func (w *Writer) StoreOrderbook(ctx context.Context, exchange, market string, book *models.OrderBook) error {
	if book == nil || (len(book.Buy) == 0 && len(book.Sell) == 0) {
		return nil
	}

	now := time.Now()
	mw := newMemFileWriter()
	pw, err := writer.NewParquetWriter(mw, new(bookLevelRecord), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	sides := []struct {
		name   string
		levels []models.OrderBookEntry
	}{
		{"buy", book.Buy},
		{"sell", book.Sell},
	}
	for _, side := range sides {
		for i, level := range side.levels {
			rec := bookLevelRecord{
				Exchange:  exchange,
				Market:    market,
				Side:      side.name,
				Level:     int32(i),
				Rate:      level.Rate,
				Quantity:  level.Quantity,
				FetchedAt: now.UnixMilli(),
			}
			if err := pw.Write(rec); err != nil {
				return fmt.Errorf("write parquet record: %w", err)
			}
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}

	key := w.objectKey("orderbooks", exchange, market, now)
	return w.upload(ctx, key, mw.Bytes(), len(book.Buy)+len(book.Sell))
}

func (w *Writer) upload(ctx context.Context, key string, data []byte, records int) error {
	_, err := w.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}
	w.log.WithFields(logger.Fields{
		"s3_key":  key,
		"records": records,
		"bytes":   len(data),
	}).Info("snapshot archived")
	return nil
}
