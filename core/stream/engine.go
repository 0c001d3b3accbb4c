// Package stream serves file bytes to HTTP clients honoring the
// partial-content contract, and synthesizes a WAVE container for the raw
// sample format on the fly.
package stream

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"chipstream/logger"
)

// DefaultChunkSize 流式传输的默认分块大小
const DefaultChunkSize = 64 << 10 // 64 KiB

// Engine streams file bodies in bounded chunks.
type Engine struct {
	chunkSize int
}

// NewEngine 创建流式传输引擎，chunkSize<=0时使用默认值
func NewEngine(chunkSize int) *Engine {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Engine{chunkSize: chunkSize}
}

// ServeFile writes the response for an optionally ranged file request.
// Status is 206 only when rangeHeader parses to a usable single range;
// a missing or malformed header yields the full body with status 200.
// Content-Range describes the served window in either case.
func (e *Engine) ServeFile(w http.ResponseWriter, f io.ReadSeeker, size int64, contentType, rangeHeader string) {
	start, end := int64(0), size-1
	status := http.StatusOK
	if rangeHeader != "" {
		if s, en, ok := ParseRange(rangeHeader, size); ok {
			start, end = s, en
			status = http.StatusPartialContent
		} else {
			logger.Debug("Range头无法解析，退回完整响应",
				logger.String("range", rangeHeader))
		}
	}
	length := end - start + 1

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	// 空文件没有可描述的字节区间，省略Content-Range
	if size > 0 {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		logger.Error("定位文件偏移失败",
			logger.Int64("offset", start),
			logger.ErrorField(err))
		return
	}
	e.copyChunks(w, f, length)
}

// copyChunks copies exactly n bytes in fixed-size chunks. A failed write
// means the client went away; the loop stops without surfacing an error,
// best-effort delivery is the contract here.
func (e *Engine) copyChunks(w io.Writer, r io.Reader, n int64) {
	buf := make([]byte, e.chunkSize)
	remaining := n
	for remaining > 0 {
		chunk := int64(e.chunkSize)
		if remaining < chunk {
			chunk = remaining
		}

		read, readErr := r.Read(buf[:chunk])
		if read > 0 {
			if _, err := w.Write(buf[:read]); err != nil {
				logger.Debug("客户端断开连接，停止传输", logger.ErrorField(err))
				return
			}
			remaining -= int64(read)
		}
		if readErr != nil {
			// io.EOF or a real read failure: nothing more to send.
			return
		}
	}
}
