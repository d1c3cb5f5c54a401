package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mriview/internal/models"
	"mriview/pkg/config"
	"mriview/pkg/session"
	"mriview/pkg/statistics"
	"mriview/pkg/visualization"
)

func main() {
	// Parse command line arguments
	input := flag.String("input", "", "DICOM directory or .h5/.hdf5 file")
	dataset := flag.String("dataset", "", "Dataset name or DICOM key (default: first)")
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	list := flag.Bool("list", false, "List the datasets of the input and exit")
	view := flag.String("view", "", "Active view: magnitude or phase (default from config)")
	rotate := flag.Int("rotate", 0, "Extra counter-clockwise quarter turns")
	slice := flag.Int("slice", 0, "Slice index")
	dynamic := flag.Int("dynamic", 0, "Dynamic index")
	dim3 := flag.Int("dim3", -1, "Index along the extra axis of 5-D data")
	roi := flag.String("roi", "", "Region statistics, rect:x0,y0,x1,y1 or ellipse:x0,y0,x1,y1")
	exportDir := flag.String("export", "", "Directory to save the selected plane")
	sequence := flag.String("sequence", "", "Also export every plane along slice or dynamic")
	verbose := flag.Bool("verbose", false, "Log scanning and loading details")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	logger := log.New(os.Stderr, "mriview: ", log.LstdFlags)
	sess, err := session.Open(*input, session.WithConfig(cfg), session.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *input, err)
	}
	defer sess.Close()

	fmt.Printf("Source: %s (%s)\n", sess.Path(), sess.Kind())
	if *list {
		listDatasets(sess)
		return
	}

	startTime := time.Now()
	if err := sess.Load(*dataset); err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	st := sess.Store()

	if *view != "" {
		v, ok := models.ParseView(*view)
		if !ok {
			log.Fatalf("Unknown view %q", *view)
		}
		st.SetView(v)
	}
	if *dim3 >= 0 {
		if err := st.ChangeDim3(*dim3); err != nil {
			log.Fatalf("Failed to select dim3 index %d: %v", *dim3, err)
		}
	}
	if *rotate != 0 {
		st.Rotate(*rotate)
	}

	fmt.Printf("Dataset %q loaded in %.2f seconds\n", sess.Current(), time.Since(startTime).Seconds())
	fmt.Printf("Shape: %v (slices x dynamics x rows x cols)\n", st.ActiveData().Shape)
	fmt.Printf("Elements: %s, view: %s, rotation: %d quarter turns\n", st.ElementKind(), st.View(), st.Rotation())
	fmt.Printf("Active range: [%g, %g]\n", st.ActiveMin(), st.ActiveMax())
	if st.Dim3Size() > 0 {
		fmt.Printf("Extra axis: index %d of %d\n", st.Dim3Index(), st.Dim3Size())
	}

	if *roi != "" {
		region, err := statistics.ParseRegion(*roi)
		if err != nil {
			log.Fatalf("Invalid region: %v", err)
		}
		plane, rows, cols, err := st.Plane(*slice, *dynamic)
		if err != nil {
			log.Fatalf("Failed to read plane: %v", err)
		}
		summary, err := statistics.Compute(plane, rows, cols, region)
		if err != nil {
			log.Fatalf("Failed to compute statistics: %v", err)
		}

		fmt.Printf("\nRegion %s on slice %d, dynamic %d:\n", region.Shape, *slice, *dynamic)
		fmt.Printf("- Pixels: %d\n", summary.Count)
		fmt.Printf("- Mean: %.4f\n", summary.Mean)
		fmt.Printf("- Standard deviation: %.4f\n", summary.StdDev)
		fmt.Printf("- Median: %.4f\n", summary.Median)
		fmt.Printf("- Min / Max: %.4f / %.4f\n", summary.Min, summary.Max)
	}

	if *exportDir != "" {
		viewer := visualization.NewViewer(st, visualization.Options{
			Scale:   cfg.Export.Scale,
			Quality: cfg.Export.Quality,
			Format:  cfg.Export.Format,
		})

		img, err := viewer.ExtractSlice(*slice, *dynamic)
		if err != nil {
			log.Fatalf("Failed to render plane: %v", err)
		}
		if err := os.MkdirAll(*exportDir, 0755); err != nil {
			log.Fatalf("Failed to create export directory: %v", err)
		}

		base := strings.ReplaceAll(sess.Current(), "/", "_")
		name := fmt.Sprintf("%s_s%03d_d%03d.%s", base, *slice, *dynamic, strings.TrimPrefix(cfg.Export.Format, "."))
		outPath := filepath.Join(*exportDir, name)
		if err := viewer.SaveSlice(img, outPath); err != nil {
			log.Fatalf("Failed to save plane: %v", err)
		}
		fmt.Printf("\nPlane saved to: %s\n", outPath)

		if *sequence != "" {
			fixed := *dynamic
			if *sequence == "dynamic" || *sequence == "d" {
				fixed = *slice
			}
			files, err := viewer.SaveSliceSequence(*sequence, fixed, filepath.Join(*exportDir, base))
			if err != nil {
				log.Printf("Warning: Failed to save %s sequence: %v", *sequence, err)
			}
			fmt.Printf("Saved %d planes along %s\n", len(files), *sequence)
		}
	}
}

func listDatasets(sess *session.Session) {
	names := sess.Datasets()
	fmt.Printf("%d datasets:\n", len(names))
	for _, name := range names {
		if desc, ok := sess.Descriptor(name); ok {
			fmt.Printf("- %s: %d slices x %d dynamics (%s)\n", name, desc.SliceCount, desc.DynamicCount, desc.ReferenceName)
			continue
		}

		attrs, err := sess.Attributes(name)
		if err != nil {
			log.Printf("Warning: Failed to read attributes of %s: %v", name, err)
		}
		if len(attrs) > 0 {
			fmt.Printf("- %s [%s]\n", name, strings.Join(attrs, ", "))
		} else {
			fmt.Printf("- %s\n", name)
		}
	}
}
