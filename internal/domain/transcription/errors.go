package transcription

import "errors"

var (
	ErrTranscriptionNotFound = errors.New("transcription not found")
	ErrUnsupportedFormat     = errors.New("unsupported audio format")
	ErrFileTooLarge          = errors.New("audio file exceeds the maximum allowed size")
	ErrEmptyFile             = errors.New("audio file is empty")
	ErrNoteRequired          = errors.New("medical note must be generated first")
	ErrCodesRequired         = errors.New("ICD-10 and CPT codes must be suggested first")
	ErrUpdateFailed          = errors.New("transcription update did not apply")
)
