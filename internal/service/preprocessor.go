package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/storage"
)

// PreprocessConfig controls image normalization before analysis.
type PreprocessConfig struct {
	Workers      int
	MaxDimension int
	JPEGQuality  int
}

// Preprocessor reads the guideline and encodes the job images for the model.
type Preprocessor struct {
	reader  GuidelineReader
	storage storage.ObjectStorage
	cfg     PreprocessConfig
}

// NewPreprocessor creates a new Preprocessor.
func NewPreprocessor(reader GuidelineReader, store storage.ObjectStorage, cfg PreprocessConfig) *Preprocessor {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 1024
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 85
	}
	return &Preprocessor{reader: reader, storage: store, cfg: cfg}
}

// Prepare extracts the guideline text and encodes every JPEG stored for jobID.
// Images that cannot be decoded are dropped; the returned info only describes
// the images that were encoded, in filename order.
// Parameters:
//   - ctx: job context.
//   - guidelinePath: path of the guideline PDF.
//   - jobID: job whose images are analyzed.
//   - sink: progress receiver; nil discards progress.
//
// Returns:
//   - string: guideline text.
//   - []domain.EncodedImage: base64 JPEG payloads.
//   - []domain.ImageInfo: filename and path of each payload.
//   - error: ErrUnreadableGuideline, ErrNoImagesToAnalyze or a context error.
func (p *Preprocessor) Prepare(ctx context.Context, guidelinePath, jobID string, sink ProgressSink) (string, []domain.EncodedImage, []domain.ImageInfo, error) {
	sink = sinkOrDiscard(sink)
	ctx = logger.SetComponent(ctx, "preprocessor")

	sink.Report(ctx, domain.ProgressEvent{
		Status:   domain.JobStatusAnalyzing,
		Progress: 10,
		Message:  "Reading brand guidelines...",
	})
	guidelines, err := p.reader.ReadText(ctx, guidelinePath)
	if err != nil {
		return "", nil, nil, err
	}

	sink.Report(ctx, domain.ProgressEvent{
		Status:   domain.JobStatusAnalyzing,
		Progress: 15,
		Message:  "Processing images...",
	})
	keys, err := p.imageKeys(ctx, jobID)
	if err != nil {
		return "", nil, nil, err
	}
	if len(keys) == 0 {
		return "", nil, nil, fmt.Errorf("%w: job %s", domain.ErrNoImagesToAnalyze, jobID)
	}

	encoded := p.encodeAll(ctx, keys, sink)
	if err := ctx.Err(); err != nil {
		return "", nil, nil, err
	}

	images := make([]domain.EncodedImage, 0, len(keys))
	info := make([]domain.ImageInfo, 0, len(keys))
	for _, img := range encoded {
		if img == nil {
			continue
		}
		images = append(images, *img)
		info = append(info, img.ImageInfo)
	}
	if len(images) == 0 {
		return "", nil, nil, fmt.Errorf("%w: no image of job %s could be decoded", domain.ErrNoImagesToAnalyze, jobID)
	}

	sink.Report(ctx, domain.ProgressEvent{
		Status:      domain.JobStatusAnalyzing,
		Progress:    30,
		Message:     fmt.Sprintf("Prepared %d images for analysis", len(images)),
		TotalImages: len(images),
	})
	return guidelines, images, info, nil
}

func (p *Preprocessor) imageKeys(ctx context.Context, jobID string) ([]string, error) {
	if _, err := storage.JoinKey(jobID, "probe"); err != nil {
		return nil, fmt.Errorf("%w: invalid job id", domain.ErrNoImagesToAnalyze)
	}
	all, err := p.storage.List(ctx, jobID+"/")
	if err != nil {
		return nil, fmt.Errorf("list job images: %w", err)
	}

	keys := make([]string, 0, len(all))
	for _, key := range all {
		if path.Dir(key) != jobID {
			continue
		}
		switch strings.ToLower(path.Ext(key)) {
		case ".jpg", ".jpeg":
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// encodeAll runs a bounded worker pool over keys. The result slice is indexed
// like keys; failed entries stay nil.
func (p *Preprocessor) encodeAll(ctx context.Context, keys []string, sink ProgressSink) []*domain.EncodedImage {
	results := make([]*domain.EncodedImage, len(keys))
	total := len(keys)

	numWorkers := p.cfg.Workers
	if total < numWorkers {
		numWorkers = total
	}

	jobs := make(chan int, total)
	var wg sync.WaitGroup
	var done atomic.Int32

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				key := keys[i]
				data, err := p.encode(ctx, key)
				if err != nil {
					logger.CtxWarn(ctx, "Dropping image %s: %v", key, err)
				} else {
					results[i] = &domain.EncodedImage{
						ImageInfo: domain.ImageInfo{Filename: path.Base(key), Path: p.storage.GetURL(key)},
						Data:      data,
					}
				}

				n := int(done.Add(1))
				sink.Report(ctx, domain.ProgressEvent{
					Status:       domain.JobStatusAnalyzing,
					Progress:     15 + n*15/total,
					Message:      fmt.Sprintf("Processed %d/%d images", n, total),
					CurrentImage: n,
					TotalImages:  total,
				})
			}
		}()
	}

	for i := range keys {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// encode flattens the image onto white, bounds it to MaxDimension and returns
// it as base64 JPEG.
func (p *Preprocessor) encode(ctx context.Context, key string) (string, error) {
	rc, err := p.storage.Download(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	flat := imaging.Overlay(imaging.New(bounds.Dx(), bounds.Dy(), color.White), src, image.Pt(0, 0), 1.0)

	var img image.Image = flat
	if bounds.Dx() > p.cfg.MaxDimension || bounds.Dy() > p.cfg.MaxDimension {
		img = imaging.Fit(flat, p.cfg.MaxDimension, p.cfg.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.cfg.JPEGQuality)); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
