// captcha-batch runs the recognizer over a directory of labelled captchas.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Brownie44l1/captcha-api/internal/batch"
	"github.com/Brownie44l1/captcha-api/internal/model"
	"github.com/spf13/cobra"
)

// Version metadata injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "captcha-batch: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "captcha-batch",
		Short:         "Recognize and solve a directory of math captchas",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(
		newRunCmd(stdout),
		newVersionCmd(stdout),
	)
	return root
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "captcha-batch %s (%s)\n", version, commit)
		},
	}
}

func newRunCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Solve every image in a directory and print accuracy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			modelPath, _ := cmd.Flags().GetString("model")
			metadataPath, _ := cmd.Flags().GetString("metadata")
			libPath, _ := cmd.Flags().GetString("ort-lib")
			return runBatch(stdout, dir, modelPath, metadataPath, libPath)
		},
	}
	cmd.Flags().String("dir", "datasets/test", "Directory of test images")
	cmd.Flags().String("model", "models/mathcode.onnx", "ONNX model path")
	cmd.Flags().String("metadata", "", "Model metadata JSON (defaults to the built-in vocabulary)")
	cmd.Flags().String("ort-lib", os.Getenv("ORT_LIB_PATH"), "onnxruntime shared library path")
	return cmd
}

func runBatch(stdout io.Writer, dir, modelPath, metadataPath, libPath string) error {
	// Check inputs before paying for model load.
	if _, err := batch.ListImages(dir); err != nil {
		return err
	}
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("model file %s not found", modelPath)
		}
		return err
	}

	cfg, err := model.LoadConfig(metadataPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engine, err := model.NewONNXEngine(modelPath, libPath, cfg.InputName, cfg.OutputName)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	defer engine.Close()

	recognizer, err := model.NewRecognizer(cfg, engine)
	if err != nil {
		return err
	}

	_, err = batch.Run(dir, recognizer, stdout)
	return err
}
