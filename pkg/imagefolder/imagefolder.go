package imagefolder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/detbench/pkg/nn"
	"github.com/cyclopcam/logs"
)

// Default limit on the number of images that we load from a folder
const DefaultMaxImages = 512

// Size and value of the warm-up image
const WarmupWidth = 500
const WarmupHeight = 300
const WarmupValue = 128

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// List returns up to 'max' image filenames from dir, sorted by name.
// If max is zero or negative, then there is no limit.
func List(dir string, max int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	// ReadDir returns entries sorted by filename
	files := []string{}
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
		if max > 0 && len(files) == max {
			break
		}
	}
	return files, nil
}

// Load decodes up to 'max' images from dir into RGB.
// If width and height are positive, then every image is resized to that size, which is
// what a network with a fixed input size needs. Otherwise images keep their original size.
func Load(log logs.Log, dir string, max, width, height int) ([]nn.ImageCrop, []string, error) {
	files, err := List(dir, max)
	if err != nil {
		return nil, nil, err
	}
	images := make([]nn.ImageCrop, 0, len(files))
	for _, f := range files {
		img, err := LoadFile(f, width, height)
		if err != nil {
			return nil, nil, err
		}
		images = append(images, img)
	}
	log.Infof("Loaded %v images from '%v'", len(images), dir)
	return images, files, nil
}

// LoadFile decodes a single image file into RGB, optionally resizing it
func LoadFile(filename string, width, height int) (nn.ImageCrop, error) {
	img, err := cimg.ReadFile(filename)
	if err != nil {
		return nn.ImageCrop{}, fmt.Errorf("Failed to decode '%v': %w", filename, err)
	}
	img = img.ToRGB()
	if width > 0 && height > 0 && (img.Width != width || img.Height != height) {
		img = cimg.ResizeNew(img, width, height, nil)
	}
	return ToImageCrop(img), nil
}

// ToImageCrop converts a cimg.Image into a whole-image crop.
// If the image rows are padded, the pixels are copied into a tightly packed buffer.
func ToImageCrop(img *cimg.Image) nn.ImageCrop {
	nchan := img.NChan()
	rowBytes := img.Width * nchan
	if img.Stride == rowBytes {
		return nn.WholeImage(nchan, img.Pixels[:rowBytes*img.Height], img.Width, img.Height)
	}
	pixels := make([]byte, rowBytes*img.Height)
	for y := 0; y < img.Height; y++ {
		copy(pixels[y*rowBytes:(y+1)*rowBytes], img.Pixels[y*img.Stride:y*img.Stride+rowBytes])
	}
	return nn.WholeImage(nchan, pixels, img.Width, img.Height)
}

// WarmupImage is the uniform grey image that we run through a network before timing it
func WarmupImage() nn.ImageCrop {
	return UniformRGB(WarmupWidth, WarmupHeight, WarmupValue)
}

// UniformRGB creates an RGB image where every channel of every pixel is 'value'
func UniformRGB(width, height int, value byte) nn.ImageCrop {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for i := range img.Pixels {
		img.Pixels[i] = value
	}
	return ToImageCrop(img)
}

// Synthetic creates n uniform images, each with a different grey level, for benchmarking
// without an image folder.
func Synthetic(n, width, height int) []nn.ImageCrop {
	images := make([]nn.ImageCrop, n)
	for i := range images {
		images[i] = UniformRGB(width, height, byte(i*37))
	}
	return images
}
