package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/detbench/pkg/bench"
	"github.com/cyclopcam/detbench/pkg/imagefolder"
	"github.com/cyclopcam/detbench/pkg/nn"
	"github.com/cyclopcam/detbench/pkg/resultapi"
	"github.com/cyclopcam/detbench/pkg/resultdb"
	"github.com/cyclopcam/detbench/pkg/simdetector"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// Parse a comma-separated list of batch sizes, such as "1,2,4"
func parseBatchSizes(s string) ([]int, error) {
	sizes := []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: batch size '%v'", nn.ErrInvalidArgument, part)
		}
		sizes = append(sizes, b)
	}
	return sizes, nil
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func main() {
	parser := argparse.NewParser("detbench", "Measure object detection latency at different batch sizes")
	imageDir := parser.String("i", "images", &argparse.Options{Help: "Folder of images to run through the detector"})
	maxImages := parser.Int("", "max", &argparse.Options{Help: "Maximum number of images to load from the folder", Default: imagefolder.DefaultMaxImages})
	synthetic := parser.Int("", "synthetic", &argparse.Options{Help: "Benchmark this many synthetic grey images instead of an image folder", Default: 0})
	batchList := parser.String("b", "batch", &argparse.Options{Help: "Comma-separated list of batch sizes", Default: "1,2,4"})
	trials := parser.Int("t", "trials", &argparse.Options{Help: "Number of trials per batch size", Default: 10})
	warmup := parser.Int("w", "warmup", &argparse.Options{Help: "Number of warm-up runs before timing", Default: 2})
	conf := parser.Float("", "conf", &argparse.Options{Help: "Probability threshold of detections", Default: nn.DefaultProbabilityThreshold})
	nmsThreshold := parser.Float("", "nms", &argparse.Options{Help: "NMS IoU threshold", Default: nn.DefaultNmsIouThreshold})
	postprocess := parser.Flag("", "post", &argparse.Options{Help: "Run NMS and the probability filter on the detector output (not timed)"})
	show := parser.Flag("", "show", &argparse.Options{Help: "Print the detections of the first trial (implies --post)"})
	jsonOutput := parser.Flag("", "json", &argparse.Options{Help: "Print results as JSON instead of a table"})
	dbFile := parser.String("", "db", &argparse.Options{Help: "sqlite file where results are saved"})
	description := parser.String("", "desc", &argparse.Options{Help: "Description of this run, saved with the results"})
	rateLimit := parser.Int("", "rate", &argparse.Options{Help: "Requests per minute per client IP, to each results endpoint, when serving (0 = unlimited)", Default: resultapi.DefaultRequestsPerMinute})
	serve := parser.String("", "serve", &argparse.Options{Help: "Serve stored results from --db over HTTP on this address (eg :8080), instead of running a benchmark"})
	classFile := parser.String("", "classes", &argparse.Options{Help: "Text file with one class name per line, starting with the background class (default is PASCAL VOC)"})
	modelFile := parser.String("", "model", &argparse.Options{Help: "JSON model config, which sets the network input size and class names"})
	batchLatency := parser.Float("", "batch-latency", &argparse.Options{Help: "Simulated detector: fixed milliseconds per batch", Default: 5.0})
	imageLatency := parser.Float("", "image-latency", &argparse.Options{Help: "Simulated detector: milliseconds per image", Default: 20.0})
	proposals := parser.Int("", "proposals", &argparse.Options{Help: "Simulated detector: region proposals per image", Default: 300})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	if *serve != "" {
		if *dbFile == "" {
			check(fmt.Errorf("--serve requires --db"))
		}
		db, err := resultdb.NewResultDB(logger, *dbFile)
		check(err)
		server := resultapi.NewServer(logger, db, *rateLimit)
		server.ListenForKillSignals()
		check(server.ListenHTTP(*serve))
		db.Close()
		return
	}

	batchSizes, err := parseBatchSizes(*batchList)
	check(err)

	classes := nn.VOCClasses
	width, height := 0, 0
	if *modelFile != "" {
		model, err := nn.LoadModelConfig(*modelFile)
		check(err)
		width, height = model.Width, model.Height
		if len(model.Classes) != 0 {
			classes = model.Classes
		}
		logger.Infof("Model %v, input %v x %v, %v classes", model.Architecture, width, height, len(classes))
	}
	if *classFile != "" {
		classes, err = nn.LoadClassFile(*classFile)
		check(err)
	}

	var images []nn.ImageCrop
	if *synthetic > 0 {
		w, h := imagefolder.WarmupWidth, imagefolder.WarmupHeight
		if width > 0 && height > 0 {
			w, h = width, height
		}
		images = imagefolder.Synthetic(*synthetic, w, h)
	} else if *imageDir != "" {
		images, _, err = imagefolder.Load(logger, *imageDir, *maxImages, width, height)
		check(err)
	} else {
		check(fmt.Errorf("Either --images or --synthetic is required"))
	}

	detConfig := simdetector.DefaultConfig()
	detConfig.NumClasses = len(classes)
	detConfig.Proposals = *proposals
	detConfig.BatchLatency = millis(*batchLatency)
	detConfig.ImageLatency = millis(*imageLatency)
	det, err := simdetector.NewDetector(detConfig)
	check(err)

	logger.Infof("Warming up with %v runs", *warmup)
	check(nn.Warmup(det, imagefolder.WarmupImage(), *warmup))

	params := nn.NewDetectionParams()
	params.ProbabilityThreshold = float32(*conf)
	params.NmsIouThreshold = float32(*nmsThreshold)
	post, err := nn.NewPostprocessor(params)
	check(err)

	cfg := bench.Config{
		BatchSizes:       batchSizes,
		Trials:           *trials,
		Postprocess:      *postprocess || *show,
		FilterDetections: true,
	}
	runner, err := bench.NewRunner(logger, cfg, post)
	check(err)
	if *show {
		runner.OnDetections = func(batchSize, trial, image int, set nn.DetectionSet) {
			if trial != 0 {
				return
			}
			for _, line := range set.Describe(classes) {
				logger.Infof("Batch size %v, image %v: %v", batchSize, image, line)
			}
		}
	}

	logger.Infof("Benchmarking %v images, batch sizes %v, %v trials", len(images), batchSizes, *trials)
	results, runErr := runner.Run(det, images)

	if *jsonOutput {
		check(bench.WriteJSON(os.Stdout, results))
	} else {
		check(bench.WriteReport(os.Stdout, results))
	}

	if *dbFile != "" {
		db, err := resultdb.NewResultDB(logger, *dbFile)
		check(err)
		desc := *description
		if desc == "" {
			desc = *imageDir
		}
		run := &resultdb.Run{
			Detector:    "simulated",
			Description: desc,
			Images:      len(images),
			Config: &dbh.JSONField[resultdb.RunConfigJSON]{
				Data: resultdb.RunConfigJSON{
					Bench:     cfg,
					Detection: *params,
				},
			},
		}
		check(db.SaveRun(run, results))
		db.Close()
	}

	if runErr != nil {
		os.Exit(1)
	}
}
