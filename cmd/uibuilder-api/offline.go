package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/config"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/preview"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errMissingInput = errors.New("--input is required")

type layoutOutput struct {
	PageID               string               `json:"pageId"`
	ReservedHeaderHeight float64              `json:"reservedHeaderHeight"`
	Frames               []canvas.PlacedFrame `json:"frames"`
}

func newLayoutCommand() *cobra.Command {
	var input, page string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Resolve the frames of one page of an exported document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(input, page, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Exported pages JSON file")
	cmd.Flags().StringVar(&page, "page", "", "Page id (defaults to the first page)")
	return cmd
}

func newPreviewCommand() *cobra.Command {
	var input, page, output string
	var scale float64
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render one page of an exported document to PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return runPreview(input, page, scale, cmd.OutOrStdout())
			}
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := runPreview(input, page, scale, file); err != nil {
				_ = file.Close()
				return err
			}
			return file.Close()
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Exported pages JSON file")
	cmd.Flags().StringVar(&page, "page", "", "Page id (defaults to the first page)")
	cmd.Flags().StringVar(&output, "output", "", "PNG destination (defaults to stdout)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Pixel scale")
	return cmd
}

func newRoomsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List rooms with stored pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(appConfig.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			db, roomService, err := openStore(appConfig, logger)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			codes, err := roomService.ListRooms(cmd.Context())
			if err != nil {
				return err
			}
			for _, code := range codes {
				fmt.Fprintln(cmd.OutOrStdout(), code.String())
			}
			return nil
		},
	}
}

// loadDocument reads an exported pages file and picks the requested page.
func loadDocument(input, page string) (*canvas.Document, canvas.PageID, error) {
	if input == "" {
		return nil, "", errMissingInput
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, "", err
	}
	var wires []canvas.PageWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", input, err)
	}
	pages, err := canvas.PagesFromWire(wires)
	if err != nil {
		return nil, "", err
	}
	if len(pages) == 0 {
		return nil, "", canvas.ErrPageNotFound
	}
	pageID := pages[0].ID
	if page != "" {
		pageID, err = canvas.NewPageID(page)
		if err != nil {
			return nil, "", err
		}
	}
	doc := canvas.NewDocument(pages...)
	if _, ok := doc.Page(pageID); !ok {
		return nil, "", fmt.Errorf("%w: %s", canvas.ErrPageNotFound, pageID)
	}
	return doc, pageID, nil
}

func runLayout(input, page string, out io.Writer) error {
	doc, pageID, err := loadDocument(input, page)
	if err != nil {
		return err
	}
	resolver := canvas.NewResolver(doc)
	frames, _ := resolver.ResolvePage(pageID)
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(layoutOutput{
		PageID:               pageID.String(),
		ReservedHeaderHeight: resolver.ReservedHeaderHeight(pageID),
		Frames:               frames,
	})
}

func runPreview(input, page string, scale float64, out io.Writer) error {
	doc, pageID, err := loadDocument(input, page)
	if err != nil {
		return err
	}
	renderer, err := preview.NewRenderer(preview.Config{Scale: scale})
	if err != nil {
		return err
	}
	return renderer.WritePNG(out, doc, pageID)
}
