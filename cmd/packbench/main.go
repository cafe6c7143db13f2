package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/atlas-packer/internal/bench"
	"github.com/eugenenazirov/atlas-packer/internal/generator"
	"github.com/eugenenazirov/atlas-packer/internal/logging"
	"github.com/eugenenazirov/atlas-packer/internal/packing"
	"github.com/eugenenazirov/atlas-packer/internal/render"
)

func main() {
	kingpinApp := kingpin.New("packbench", "Greedy packing benchmark - fills a canvas with random rectangle sizes and reports timing")
	heightFlag := kingpinApp.Flag("height", "Canvas height in cells").Default("320").Int()
	widthFlag := kingpinApp.Flag("width", "Canvas width in cells").Default("320").Int()
	contactDepthFlag := kingpinApp.Flag("contact-depth", "Contact strip depth used by placement scoring").Default("0").Int()
	baseSizeFlag := kingpinApp.Flag("base-size", "Nominal rectangle side length").Default("20").Int()
	heightSigmaFlag := kingpinApp.Flag("height-sigma", "Relative spread of rectangle heights").Default("0.2").Float64()
	widthSigmaFlag := kingpinApp.Flag("width-sigma", "Relative spread of rectangle widths").Default("0.4").Float64()
	minSideFlag := kingpinApp.Flag("min-side", "Minimum rectangle side length").Default("4").Int()
	seedFlag := kingpinApp.Flag("seed", "Random seed (0 uses the current time)").Default("0").Int64()
	maxFlag := kingpinApp.Flag("max", "Maximum placements (0 runs until the canvas rejects one)").Default("0").Int()
	pngPath := kingpinApp.Flag("png", "Write the layout as a PNG to this path").String()
	pdfPath := kingpinApp.Flag("pdf", "Write the layout as a PDF to this path").String()
	scaleFlag := kingpinApp.Flag("scale", "Integer upscale factor for the PNG").Default("4").Int()
	labelsFlag := kingpinApp.Flag("labels", "Draw rectangle ids on the PNG").Bool()
	asciiFlag := kingpinApp.Flag("ascii", "Print the layout as an ASCII grid to stdout").Bool()
	debugFlag := kingpinApp.Flag("debug", "Enable debug console logging").Bool()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	logger, err := logging.New(*debugFlag)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	result, err := bench.Run(bench.Options{
		CanvasHeight: *heightFlag,
		CanvasWidth:  *widthFlag,
		ContactDepth: *contactDepthFlag,
		Sizes: generator.Config{
			BaseSize:    *baseSizeFlag,
			HeightSigma: *heightSigmaFlag,
			WidthSigma:  *widthSigmaFlag,
			MinSide:     *minSideFlag,
		},
		Seed:          seed,
		MaxPlacements: *maxFlag,
	})
	if err != nil {
		logger.Fatal("benchmark failed", zap.Error(err))
	}

	logger.Info("benchmark complete",
		zap.Int("canvasHeight", result.Packing.Height()),
		zap.Int("canvasWidth", result.Packing.Width()),
		zap.Int64("seed", seed),
		zap.Int("placed", result.Placed),
		zap.Int("attempts", result.Attempts),
		zap.Duration("elapsed", result.Elapsed),
		zap.Float64("perSecond", result.PerSecond()),
		zap.Float64("fillRatio", result.FillRatio),
	)

	if *asciiFlag {
		fmt.Print(render.Text(result.Packing))
	}

	if *pngPath != "" {
		if err := writePNG(*pngPath, result.Packing, *scaleFlag, *labelsFlag); err != nil {
			logger.Fatal("failed to write PNG layout", zap.Error(err))
		}
		logger.Info("wrote PNG layout", zap.String("path", *pngPath))
	}

	if *pdfPath != "" {
		title := fmt.Sprintf("Packbench seed %d", seed)
		if err := writePDF(*pdfPath, result.Packing, title); err != nil {
			logger.Fatal("failed to write PDF layout", zap.Error(err))
		}
		logger.Info("wrote PDF layout", zap.String("path", *pdfPath))
	}
}

func writePNG(path string, p *packing.Packing, scale int, labels bool) error {
	opts := []render.ImageOption{render.WithScale(scale)}
	if labels {
		opts = append(opts, render.WithLabels())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render.PNG(f, p, opts...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writePDF(path string, p *packing.Packing, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render.PDF(f, p, title); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
