package cli

import (
	"archive/tar"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
)

func (c *CLI) newDataCommand() *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Pack and unpack corpus archives (.tar.gz)",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	var dest string
	unpackCmd := &cobra.Command{
		Use:   "unpack <archive-or-url>",
		Short: "Extract a corpus archive from a file or URL",
		Args:  cobra.ExactArgs(1),
		Example: `  openie data unpack corpus.tar.gz --dest data
  openie data unpack https://example.com/openie/corpus.tar.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := dataUnpack(args[0], dest)
			if err != nil {
				return err
			}
			slog.Info("Corpus extracted", "files", n, "folder", dest)
			return nil
		},
	}
	unpackCmd.Flags().StringVar(&dest, "dest", "data", "Destination folder")

	var output string
	packCmd := &cobra.Command{
		Use:     "pack <folder>",
		Short:   "Archive a corpus folder",
		Args:    cobra.ExactArgs(1),
		Example: `  openie data pack data -o corpus.tar.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := dataPack(args[0], output)
			if err != nil {
				return err
			}
			slog.Info("Archive created", "files", n, "path", output)
			return nil
		},
	}
	packCmd.Flags().StringVarP(&output, "output", "o", "corpus.tar.gz", "Archive path")

	dataCmd.AddCommand(unpackCmd, packCmd)
	return dataCmd
}

func openArchive(source string) (io.ReadCloser, error) {
	if !isURL(source) {
		return os.Open(source)
	}
	slog.Info("Downloading corpus", "url", source)
	resp, err := http.Get(source)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// dataUnpack extracts the regular files of a .tar.gz archive under dest and
// returns how many were written. Entries escaping dest are rejected.
func dataUnpack(source, dest string) (int, error) {
	rc, err := openArchive(source)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	gr, err := gzip.NewReader(rc)
	if err != nil {
		return 0, fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	root := filepath.Clean(dest)
	tr := tar.NewReader(gr)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read tar: %w", err)
		}

		target := filepath.Join(root, filepath.FromSlash(hdr.Name))
		if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return count, fmt.Errorf("archive entry %q escapes %s", hdr.Name, dest)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return count, fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return count, fmt.Errorf("create parent dir: %w", err)
			}
			f, err := os.Create(target)
			if err != nil {
				return count, fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return count, fmt.Errorf("write file %s: %w", target, err)
			}
			if err := f.Close(); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// dataPack writes the files under folder into a .tar.gz archive with paths
// relative to folder, and returns how many files were archived.
func dataPack(folder, output string) (int, error) {
	tf, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", output, err)
	}

	gw := gzip.NewWriter(tf)
	tw := tar.NewWriter(gw)

	count := 0
	err = filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil || rel == "." {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		_ = tw.Close()
		_ = gw.Close()
		_ = tf.Close()
		return count, fmt.Errorf("create archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		_ = gw.Close()
		_ = tf.Close()
		return count, fmt.Errorf("close tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		_ = tf.Close()
		return count, fmt.Errorf("close gzip: %w", err)
	}
	return count, tf.Close()
}
