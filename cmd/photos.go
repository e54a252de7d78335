package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/database"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Manage guest photos",
}

var photosImportCmd = &cobra.Command{
	Use:   "import <owner-id> <folder-path> [folder-path...]",
	Short: "Import photos from folders",
	Long: `Import photos from one or more folders into an event or market.
Imported photos are picked up by every open template of the owner.

By default, only files in the specified folders are imported (non-recursive).
Use -r to search recursively in subdirectories.
Supported formats: jpg, jpeg, png, webp

Example:
  photo-booth photos import summer-fair /path/to/photos
  photo-booth photos import --kind market -r farmers-market /path/to/photos`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPhotosImport,
}

func init() {
	rootCmd.AddCommand(photosCmd)
	photosCmd.AddCommand(photosImportCmd)

	photosImportCmd.Flags().String("kind", string(database.OwnerEvent), "Owner kind: event or market")
	photosImportCmd.Flags().Bool("camera", false, "Mark photos as taken by the booth camera")
	photosImportCmd.Flags().BoolP("recursive", "r", false, "Search for photos recursively in subdirectories")
	photosImportCmd.Flags().Int("workers", 4, "Number of concurrent imports")
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

// collectImageFiles lists the image files of folders.
func collectImageFiles(folders []string, recursive bool) ([]string, error) {
	var filePaths []string
	for _, folderPath := range folders {
		info, err := os.Stat(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot access folder %s: %w", folderPath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", folderPath)
		}

		if recursive {
			err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isImageFile(d.Name()) {
					filePaths = append(filePaths, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("cannot walk folder %s: %w", folderPath, err)
			}
			continue
		}

		entries, err := os.ReadDir(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read folder %s: %w", folderPath, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isImageFile(entry.Name()) {
				filePaths = append(filePaths, filepath.Join(folderPath, entry.Name()))
			}
		}
	}
	return filePaths, nil
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// submitter is the part of booth.Ingestor the import uses.
type submitter interface {
	Submit(ctx context.Context, owner booth.Owner, origin database.PhotoOrigin, data []byte) (database.Photo, error)
}

// importFiles submits every file with up to workers concurrent submissions
// and returns the per-file failures.
func importFiles(ctx context.Context, ing submitter, owner booth.Owner, origin database.PhotoOrigin,
	filePaths []string, workers int, bar *progressbar.ProgressBar,
) (int, []string) {
	var (
		imported int
		failures []string
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, max(1, workers))
	)

	for _, filePath := range filePaths {
		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := importFile(ctx, ing, owner, origin, path)

			mu.Lock()
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			} else {
				imported++
			}
			mu.Unlock()
			if bar != nil {
				bar.Add(1)
			}
		}(filePath)
	}
	wg.Wait()
	return imported, failures
}

func importFile(ctx context.Context, ing submitter, owner booth.Owner, origin database.PhotoOrigin, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = ing.Submit(ctx, owner, origin, data)
	return err
}

func runPhotosImport(cmd *cobra.Command, args []string) error {
	owner := booth.Owner{ID: args[0], Kind: database.OwnerKind(mustGetString(cmd, "kind"))}
	if err := owner.Validate(); err != nil {
		return err
	}
	origin := database.OriginUpload
	if mustGetBool(cmd, "camera") {
		origin = database.OriginCamera
	}

	filePaths, err := collectImageFiles(args[1:], mustGetBool(cmd, "recursive"))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(filePaths) == 0 {
		fmt.Fprintln(out, "No image files found in the specified folders.")
		return nil
	}
	fmt.Fprintf(out, "Found %d image(s) to import from %d folder(s)\n", len(filePaths), len(args)-1)

	cfg, log := loadConfig()
	ctx := commandContext(cmd)

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	bar := newProgressBar(len(filePaths), "Importing")
	imported, failures := importFiles(ctx, booth.NewIngestor(b.Store, b.Objects, log), owner, origin,
		filePaths, mustGetInt(cmd, "workers"), bar)
	fmt.Fprintln(out)

	for _, msg := range failures {
		fmt.Fprintf(out, "Failed: %s\n", msg)
	}
	if imported == 0 {
		return fmt.Errorf("no photos were imported successfully")
	}
	fmt.Fprintf(out, "Imported %d photo(s) into %s %s\n", imported, owner.Kind, owner.ID)
	return nil
}
