package cmd

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"vipsscaler/internal/core/domain"

	"github.com/spf13/cobra"
)

var (
	thumbWidth      int
	thumbInterlace  bool
	thumbComment    string
	thumbMimeType   string
	thumbSourceSize string
)

var thumbCmd = &cobra.Command{
	Use:   "thumb SRC [DST]",
	Short: "Scale one image and print the path of the result",
	Long: "thumb runs a single transform. Without DST the result lands in a temporary file " +
		"that the caller is responsible for removing.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runThumb,
}

func init() {
	thumbCmd.Flags().IntVar(&thumbWidth, "width", 0, "target width in pixels, default thumb.default_width")
	thumbCmd.Flags().BoolVar(&thumbInterlace, "interlace", false, "write an interlaced or progressive image")
	thumbCmd.Flags().StringVar(&thumbComment, "comment", "", "comment metadata, default \"File source: SRC\"")
	thumbCmd.Flags().StringVar(&thumbMimeType, "mime", "", "source MIME type, default detected from the file")
	thumbCmd.Flags().StringVar(&thumbSourceSize, "source-size", "", "source dimensions as WxH for formats that can't be probed")
}

func runThumb(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	var dst string
	if len(args) == 2 {
		dst, err = filepath.Abs(args[1])
		if err != nil {
			return err
		}
	}

	info, err := probeSource(src, thumbSourceSize)
	if err != nil {
		return err
	}

	if thumbMimeType != "" {
		info.mimeType = thumbMimeType
	}

	width := thumbWidth
	if width == 0 {
		width = cfg.Thumb.DefaultWidth
	}

	physicalWidth, physicalHeight, err := domain.NormalizeSize(info.width, info.height, width)
	if err != nil {
		return err
	}

	comment := thumbComment
	if comment == "" {
		comment = "File source: " + src
	}

	scaler, _, err := newScaler(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out, err := scaler.Transform(ctx, domain.ScalerParameters{
		PhysicalWidth:  physicalWidth,
		PhysicalHeight: physicalHeight,
		ClientWidth:    physicalWidth,
		ClientHeight:   physicalHeight,
		SrcWidth:       info.width,
		SrcHeight:      info.height,
		SrcPath:        src,
		DstPath:        dst,
		MimeType:       info.mimeType,
		Comment:        comment,
		Interlace:      thumbInterlace,
	})
	if err != nil {
		var toolErr *domain.ToolError
		if errors.As(err, &toolErr) && toolErr.Output != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), toolErr.Output)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)

	return nil
}

type sourceInfo struct {
	width    int
	height   int
	mimeType string
}

// probeSource reads the image header for dimensions and type. An explicit WxH skips
// decoding, the type then falls back to the file extension.
func probeSource(path, size string) (sourceInfo, error) {
	if size != "" {
		w, h, err := parseSize(size)
		if err != nil {
			return sourceInfo{}, err
		}

		return sourceInfo{width: w, height: h, mimeType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return sourceInfo{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return sourceInfo{}, fmt.Errorf("reading dimensions of %s, pass --source-size: %w", path, err)
	}

	return sourceInfo{width: cfg.Width, height: cfg.Height, mimeType: "image/" + format}, nil
}

func parseSize(size string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(size), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", size)
	}

	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", size, err)
	}

	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", size, err)
	}

	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q, dimensions must be positive", size)
	}

	return width, height, nil
}
