//go:build !js

package pipeline

import (
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

func writeSignalsParquet(path string, rows []signalRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := encodeSignalsParquet(fw, rows); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func marshalSignalsParquet(rows []signalRow) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := encodeSignalsParquet(fw, rows); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func encodeSignalsParquet(fw source.ParquetFile, rows []signalRow) error {
	pw, err := writer.NewParquetWriter(fw, new(signalRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}
