// Package service provides the corpus stream processor
package service

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"reviewprep/internal/adapters/ingest/jsonl"
	"reviewprep/internal/core/record"
	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"
	"reviewprep/internal/services/preprocess/domain"
)

const (
	sampleRawMax   = 2048 // max bytes of a raw line to log for the sample
	writerBufBytes = 1 << 20
)

var errNotObject = errors.New("record is not a JSON object")

// Config holds configuration options for the processor
type Config struct {
	Workers      int             // parallel transform workers; <=1 runs inline
	BatchLines   int             // lines per ordered batch when Workers > 1; <=0 -> 4096
	MaxMalformed int             // diagnostics kept in Result; <0 keeps none, 0 -> 100
	Encoding     record.Encoding // output encoding
}

// Service implements domain.ProcessorPort
type Service struct {
	Readers domain.ReaderFactory
	Cfg     Config
}

// New constructs the processor
func New(readers domain.ReaderFactory, cfg Config) *Service {
	if readers == nil {
		panic("preprocess.Service requires a non nil ReaderFactory")
	}
	return &Service{Readers: readers, Cfg: cfg}
}

// lineOut is the outcome of transforming one line
type lineOut struct {
	no  int
	raw []byte
	out []byte // encoded record plus newline, nil when malformed
	err error
}

// Process streams inputPath through the record transformer into outputPath.
// Malformed lines are skipped and reported; a missing input returns
// ErrInputNotFound without creating outputPath
func (s *Service) Process(ctx context.Context, inputPath, outputPath string) (res domain.Result, retErr error) {
	start := time.Now()
	res = domain.Result{Input: inputPath, Output: outputPath}
	defer func() { res.Elapsed = time.Since(start) }()

	log := logger.C(ctx).With().Str("input", inputPath).Str("output", outputPath).Logger()

	rd, err := s.Readers.Open(inputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Error().Msg("preprocess: file not found")
			return res, perr.Wrapf(domain.ErrInputNotFound, perr.ErrorCodeNotFound, "preprocess: %s", inputPath)
		}
		return res, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "preprocess: open %s", inputPath)
	}
	defer func() {
		if cerr := rd.Close(); cerr != nil && retErr == nil {
			retErr = cerr
		}
	}()
	res.Compressed = rd.Compressed()

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, perr.Wrapf(err, perr.ErrorCodeUnknown, "preprocess: create dir %s", dir)
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return res, perr.Wrapf(err, perr.ErrorCodeUnknown, "preprocess: create %s", outputPath)
	}
	w := bufio.NewWriterSize(f, writerBufBytes)
	defer func() {
		ferr := w.Flush()
		cerr := f.Close()
		if retErr == nil {
			retErr = errors.Join(ferr, cerr)
		}
	}()

	sink := &sink{w: w, res: &res, log: &log, keep: s.keepMalformed()}
	if s.Cfg.Workers > 1 {
		err = s.runBatched(ctx, rd, sink)
	} else {
		err = s.runInline(ctx, rd, sink)
	}

	st := rd.Stats()
	res.Lines, res.Blank, res.Bytes = st.Lines, st.Blank, st.Bytes
	if err != nil {
		return res, err
	}

	log.Info().
		Bool("compressed", res.Compressed).
		Int("lines", res.Lines).
		Int("written", res.Written).
		Int("skipped", res.Skipped).
		Int64("bytes", res.Bytes).
		Dur("elapsed", time.Since(start)).
		Msg("preprocess: done")
	return res, nil
}

func (s *Service) runInline(ctx context.Context, rd domain.LineReader, out *sink) error {
	var buf []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ln, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return readErr(err)
		}
		lo := s.transformLine(ln, buf[:0])
		if err := out.put(lo); err != nil {
			return err
		}
		if lo.out != nil {
			buf = lo.out
		}
	}
}

// runBatched reads BatchLines lines at a time, transforms them on a bounded
// errgroup and writes the batch back in input order
func (s *Service) runBatched(ctx context.Context, rd domain.LineReader, out *sink) error {
	size := s.Cfg.BatchLines
	if size <= 0 {
		size = 4096
	}
	workers := s.Cfg.Workers
	batch := make([]jsonl.Line, 0, size)
	outs := make([]lineOut, size)

	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = batch[:0]
		for len(batch) < size {
			ln, err := rd.Next()
			if err == io.EOF {
				done = true
				break
			}
			if err != nil {
				return readErr(err)
			}
			batch = append(batch, ln)
		}
		if len(batch) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		step := (len(batch) + workers - 1) / workers
		for lo := 0; lo < len(batch); lo += step {
			hi := min(lo+step, len(batch))
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					outs[i] = s.transformLine(batch[i], nil)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for i := range batch {
			if err := out.put(outs[i]); err != nil {
				return err
			}
			outs[i] = lineOut{}
		}
	}
	return nil
}

// transformLine parses, transforms and encodes one line into dst
func (s *Service) transformLine(ln jsonl.Line, dst []byte) lineOut {
	if ln.Err != nil {
		return lineOut{no: ln.No, err: ln.Err}
	}
	v, err := record.Parse(ln.Bytes)
	if err != nil {
		return lineOut{no: ln.No, raw: ln.Bytes, err: err}
	}
	if v.Kind() != record.KindObject {
		return lineOut{no: ln.No, raw: ln.Bytes, err: errNotObject}
	}
	dst = record.Append(dst, record.Transform(v), s.Cfg.Encoding)
	return lineOut{no: ln.No, raw: ln.Bytes, out: append(dst, '\n')}
}

func (s *Service) keepMalformed() int {
	switch {
	case s.Cfg.MaxMalformed < 0:
		return 0
	case s.Cfg.MaxMalformed == 0:
		return 100
	default:
		return s.Cfg.MaxMalformed
	}
}

func readErr(err error) error {
	return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "preprocess: read input")
}

// sink writes transformed lines in order and books diagnostics
type sink struct {
	w       *bufio.Writer
	res     *domain.Result
	log     *logger.Logger
	keep    int
	sampled bool
}

func (k *sink) put(lo lineOut) error {
	if lo.err != nil {
		k.res.Skipped++
		if len(k.res.Malformed) < k.keep {
			k.res.Malformed = append(k.res.Malformed, domain.Malformed{Line: lo.no, Err: lo.err.Error()})
		}
		k.log.Warn().Int("line", lo.no).Err(lo.err).Msg("preprocess: skipping malformed line")
		return nil
	}
	if !k.sampled {
		k.sampled = true
		k.log.Debug().
			Int("line_bytes", len(lo.raw)).
			Str("sample_raw", jsonl.TruncateUTF8(lo.raw, sampleRawMax)).
			Msg("preprocess: sample raw line")
	}
	if _, err := k.w.Write(lo.out); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "preprocess: write output")
	}
	k.res.Written++
	return nil
}
