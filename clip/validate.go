package clip

import "clipstash/clip-api/model"

const (
	// MaxTextLength is the longest clip text accepted, in characters.
	MaxTextLength = 1_000_000
	// MaxFiles is the most attachments a single clip may carry.
	MaxFiles = 10
	// MaxFileNameLength bounds a single attachment's display name.
	MaxFileNameLength = 255
	// MaxTotalSize caps both a single attachment and the sum of all
	// attachments of one clip.
	MaxTotalSize = 25 << 20
)

func validateName(name string) error {
	if name == "" {
		return invalidf("clip name is required")
	}
	return nil
}

func validateText(text string) error {
	if len(text) > MaxTextLength {
		return invalidf("text cannot exceed %d characters", MaxTextLength)
	}
	return nil
}

func validateFiles(files []model.FileMeta) error {
	if len(files) > MaxFiles {
		return invalidf("maximum %d files allowed", MaxFiles)
	}

	var total int64

	for _, f := range files {
		if f.FileName == "" {
			return invalidf("each file must have a fileName")
		}

		if len(f.FileName) > MaxFileNameLength {
			return invalidf("fileName cannot exceed %d characters", MaxFileNameLength)
		}

		if f.ContentType == "" {
			return invalidf("each file must have a contentType")
		}

		if f.Size <= 0 {
			return invalidf("file size must be a positive number")
		}

		if f.Size > MaxTotalSize {
			return invalidf("file %q exceeds the %d byte limit", f.FileName, int64(MaxTotalSize))
		}

		total += f.Size
	}

	if total > MaxTotalSize {
		return invalidf("combined file size exceeds the %d byte limit", int64(MaxTotalSize))
	}

	return nil
}
