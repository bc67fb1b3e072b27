package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/medscan-tech/labxtract/internal/config"
	"github.com/medscan-tech/labxtract/internal/detection"
	"github.com/medscan-tech/labxtract/internal/dictionary"
	"github.com/medscan-tech/labxtract/internal/fieldmap"
	"github.com/medscan-tech/labxtract/internal/layout"
	"github.com/medscan-tech/labxtract/internal/pipeline"
)

// extractCmd represents the extract command.
var extractCmd = &cobra.Command{
	Use:   "extract [detections.json...]",
	Short: "Extract lab test records from detection JSON files",
	Long: `Extract structured lab test records from one or more JSON files of
object-detection output.

Each input file holds either a bare JSON array of detections or an object
with a "detections" field. Each detection carries a bounding box, a field
type label, the OCR text, and a confidence score.

Examples:
  labxtract extract detections.json
  labxtract extract detections.json --format csv
  labxtract extract detections.json --trace --output debug.json
  labxtract extract page1.json page2.json --format text`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format, _ = cmd.Flags().GetString("format")
		}
		switch format {
		case "json", "csv", "text":
		default:
			return fmt.Errorf("invalid output format %q (must be json, csv, or text)", format)
		}

		outputFile := cfg.Output.File
		if cmd.Flags().Changed("output") {
			outputFile, _ = cmd.Flags().GetString("output")
		}

		trace, _ := cmd.Flags().GetBool("trace")
		if trace && format != "json" {
			return fmt.Errorf("--trace requires JSON output, got format %q", format)
		}

		p, err := buildPipeline(cfg, cmd)
		if err != nil {
			return err
		}

		var out []byte
		for _, path := range args {
			dets, err := readDetectionFile(path)
			if err != nil {
				return err
			}

			slog.Debug("Processing detection file", "file", path, "detections", len(dets))

			rendered, err := runExtraction(cmd.Context(), p, dets, format, trace)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			out = append(out, rendered...)
		}

		if outputFile != "" {
			if err := os.WriteFile(outputFile, out, 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			slog.Info("Wrote extraction results", "file", outputFile)
			return nil
		}

		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// pipelineConfig maps the resolved configuration plus command-line
// overrides onto a pipeline config.
func pipelineConfig(cfg *config.Config, cmd *cobra.Command) pipeline.Config {
	pCfg := pipeline.DefaultConfig()
	pCfg.Grouping = layout.Config{
		ToleranceFraction: cfg.Pipeline.Grouping.ToleranceFraction,
		MinTolerancePx:    cfg.Pipeline.Grouping.MinTolerancePx,
	}
	pCfg.Mapper = fieldmap.Config{
		RowTextConfidence:  cfg.Pipeline.Mapper.RowTextConfidence,
		CompleteBonus:      cfg.Pipeline.Mapper.CompleteBonus,
		FallbackConfidence: cfg.Pipeline.Mapper.FallbackConfidence,
		MinSimilarity:      cfg.Pipeline.Mapper.MinSimilarity,
	}
	pCfg.Workers = cfg.Pipeline.Parallel.MaxWorkers
	if cmd.Flags().Changed("workers") {
		pCfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	return pCfg
}

// buildPipeline assembles an extraction pipeline from the resolved
// configuration plus command-line overrides.
func buildPipeline(cfg *config.Config, cmd *cobra.Command) (*pipeline.Pipeline, error) {
	dict := dictionary.Default()
	if cfg.DictPath != "" {
		var err error
		dict, err = dictionary.Load(cfg.DictPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load dictionary: %w", err)
		}
	}

	return pipeline.New(pipelineConfig(cfg, cmd), dict), nil
}

// detectionFile is the envelope form of an input file.
type detectionFile struct {
	Detections []detection.Detection `json:"detections"`
}

// readDetectionFile reads a detection JSON file in either the bare-array
// or envelope form.
func readDetectionFile(path string) ([]detection.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var dets []detection.Detection
	if err := json.Unmarshal(data, &dets); err == nil {
		return dets, nil
	}

	var env detectionFile
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s: not a detection array or {\"detections\": [...]} object: %w", path, err)
	}
	return env.Detections, nil
}

// runExtraction runs the pipeline and renders the result in the
// requested format.
func runExtraction(ctx context.Context, p *pipeline.Pipeline, dets []detection.Detection, format string, trace bool) ([]byte, error) {
	if trace {
		records, tr, err := p.ExtractWithTrace(ctx, dets)
		if err != nil {
			return nil, err
		}
		out, err := json.MarshalIndent(struct {
			Records []pipeline.Record `json:"records"`
			Trace   *pipeline.Trace   `json:"trace"`
		}{Records: records, Trace: tr}, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}

	records, err := p.Extract(ctx, dets)
	if err != nil {
		return nil, err
	}

	switch format {
	case "csv":
		out, err := pipeline.ToCSV(records)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	case "text":
		return []byte(pipeline.ToPlainText(records)), nil
	default:
		out, err := pipeline.ToJSON(records)
		if err != nil {
			return nil, err
		}
		return append([]byte(out), '\n'), nil
	}
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("format", "f", "json", "output format (json, csv, text)")
	extractCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	extractCmd.Flags().Bool("trace", false, "include the per-row diagnostic trace (JSON only)")
	extractCmd.Flags().Int("workers", 0, "number of row mapping workers (0 = number of CPUs)")
}
