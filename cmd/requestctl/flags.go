package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
)

type attachmentFlags struct {
	links []string
	files []string
}

func (f *attachmentFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.links, "link", nil, "Link as URL or URL|description (repeatable)")
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "Path of a file to upload (repeatable)")
}

// linkDTOs splits each --link value on the first "|".
func (f attachmentFlags) linkDTOs() []attachment.LinkDTO {
	out := make([]attachment.LinkDTO, 0, len(f.links))
	for _, raw := range f.links {
		addr, desc, _ := strings.Cut(raw, "|")
		out = append(out, attachment.LinkDTO{URLAddress: addr, URLDescription: desc})
	}
	return out
}

func (f attachmentFlags) uploads() ([]attachment.Upload, error) {
	return readUploads(f.files)
}

func readUploads(paths []string) ([]attachment.Upload, error) {
	out := make([]attachment.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, withCode(exitUsage, fmt.Errorf("read --file %s: %w", p, err))
		}
		src, err := filepath.Abs(p)
		if err != nil {
			src = p
		}
		out = append(out, attachment.Upload{Name: filepath.Base(p), Data: data, Source: src})
	}
	return out, nil
}

func requireID(name string, v int64) error {
	if v <= 0 {
		return withCode(exitUsage, fmt.Errorf("--%s is required", name))
	}
	return nil
}
