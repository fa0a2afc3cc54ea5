package market

import (
	"context"
	"io"
	"os"

	"github.com/expansiontools/marketcheck/pkg/logging"
)

// backupTimeFormat matches the timestamp embedded in backup filenames,
// derived from the prior file's modification time rather than wall clock.
const backupTimeFormat = "2006-01-02T15-04-05"

const filePermissions = 0o644

// SaveModified writes every modified document back to disk as pretty
// printed JSON, creating a timestamped .bak copy of any existing file
// first. A failed backup skips that file's save without aborting the run;
// persistence is strictly single-writer, one file at a time.
func (s *Store) SaveModified(ctx context.Context) {
	log := logging.FromContext(ctx)

	for _, doc := range s.Modified() {
		path := doc.FullPath()

		if info, err := os.Stat(path); err == nil {
			backup := path + "." + info.ModTime().Format(backupTimeFormat) + ".bak"
			log.Info().Str("backup", backup).Msg("Creating backup")

			if err := copyFile(path, backup); err != nil {
				log.Error().Err(err).Str("file", path).
					Msg("Couldn't create backup file - not overwriting existing file")
				continue
			}
		}

		log.Info().Str("file", path).Msg("Saving")

		if err := os.WriteFile(path, Encode(doc.Content), filePermissions); err != nil {
			log.Error().Err(err).Str("file", path).Msg("Error writing file")
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePermissions)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
