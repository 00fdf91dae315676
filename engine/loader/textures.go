package loader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/theswiftfox/sparkle/common"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

// textureKey identifies a cached texture. The same image is uploaded once per
// colour space: albedo is sRGB, data maps are linear.
type textureKey struct {
	path string
	srgb bool
}

func keyFor(slot material.Slot, path string) textureKey {
	return textureKey{path: path, srgb: slot == material.SlotAlbedo}
}

func (k textureKey) format() pipeline.TextureFormat {
	if k.srgb {
		return pipeline.FormatRGBA8UnormSrgb
	}
	return pipeline.FormatRGBA8Unorm
}

// decodeAll decodes every key on the worker pool and waits for all of them.
// Decoding is pure CPU work; textures are created afterwards on the caller's goroutine.
func (l *loader) decodeAll(keys []textureKey) (map[textureKey]common.TextureStagingData, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		out  = make(map[textureKey]common.TextureStagingData, len(keys))
		errs []error
	)
	for i, key := range keys {
		wg.Add(1)
		l.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				src := &common.ImportedTexture{Name: key.path, Path: key.path, MaxDimension: l.maxTextureDimension}
				pixels, err := src.Decode()
				if err == nil && !pixels.Valid() {
					err = fmt.Errorf("%s: decoded %dx%d image has %d bytes", key.path, pixels.Width, pixels.Height, len(pixels.Pixels))
				}
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return nil, err
				}
				out[key] = pixels
				return nil, nil
			},
		})
	}
	wg.Wait()
	if len(errs) > 0 {
		return nil, fmt.Errorf("loader: decode textures: %w", errors.Join(errs...))
	}
	return out, nil
}

// acquireTextures makes sure every key is cached, decoding the missing ones in parallel.
func (l *loader) acquireTextures(keys []textureKey) error {
	l.mu.Lock()
	var missing []textureKey
	for _, k := range keys {
		if _, ok := l.textures[k]; !ok {
			missing = append(missing, k)
		}
	}
	l.mu.Unlock()
	if len(missing) == 0 {
		return nil
	}

	decoded, err := l.decodeAll(missing)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range missing {
		if _, ok := l.textures[k]; ok {
			continue
		}
		img := decoded[k]
		l.textures[k] = renderer.NewTexture2D(k.path, img.Width, img.Height, k.format(),
			renderer.TextureUsageSampled, renderer.WithPixels(img.Pixels))
	}
	return nil
}

// texture returns a new reference to a cached texture.
func (l *loader) texture(k textureKey) *renderer.Texture2D {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.textures[k]; ok {
		return t.Retain()
	}
	return nil
}
