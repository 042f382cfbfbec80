// Package email defines the request and result types exchanged with the
// classification service, plus the local input checks run before submitting.
package email

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/mailsort/internal/errors"
)

// MinTextLength is the minimum trimmed length, in characters, of pasted text.
const MinTextLength = 10

// MaxAttachmentBytes bounds an attached email file.
const MaxAttachmentBytes = 16 << 20

// DropMessage is shown when a dropped file has an unsupported extension.
const DropMessage = "only .pdf and .txt files can be dropped here"

// ValidationMessage is shown when input is not submittable.
const ValidationMessage = "attach a .pdf/.txt file or paste at least 10 characters of text"

// Language codes.
const (
	LangPT   = "pt"
	LangEN   = "en"
	LangAuto = "auto"
)

// IsLang reports whether s is a reply language (pt or en).
func IsLang(s string) bool {
	return s == LangPT || s == LangEN
}

// Kind tells which payload a Request carries.
type Kind int

const (
	KindText Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "text"
}

// Request is one submission to the classification service.
// Exactly one of Text or (Filename, Payload) is meaningful, per Kind.
type Request struct {
	Kind          Kind
	Text          string
	Filename      string
	Payload       []byte
	PreferredLang string // pt, en or auto
}

// NewTextRequest builds a text submission.
func NewTextRequest(text, preferredLang string) Request {
	return Request{Kind: KindText, Text: text, PreferredLang: preferredLang}
}

// NewFileRequest builds a file submission.
func NewFileRequest(filename string, payload []byte, preferredLang string) Request {
	return Request{Kind: KindFile, Filename: filename, Payload: payload, PreferredLang: preferredLang}
}

// Category is the classification outcome.
type Category string

const (
	Productive   Category = "Productive"
	Unproductive Category = "Unproductive"
)

// ParseCategory accepts the English and Portuguese labels.
// Anything unrecognised is Unproductive.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "productive", "produtivo":
		return Productive
	default:
		return Unproductive
	}
}

// Intent codes returned in Explanation.Intent.
const (
	IntentStatus     = "STATUS"
	IntentAttachment = "ATTACHMENT"
	IntentAccess     = "ACCESS"
	IntentError      = "ERROR"
	IntentClosure    = "CLOSURE"
	IntentThanks     = "THANKS"
	IntentGreetings  = "GREETINGS"
	IntentSupport    = "SUPPORT"
	IntentNonMessage = "NON_MESSAGE"
	IntentOther      = "OTHER"
)

// Explanation carries the signals behind a classification.
type Explanation struct {
	Intent      string   `json:"intent"`
	Language    string   `json:"language"`
	TopFeatures []string `json:"top_features"`
}

// Result is a successful classification. It is never mutated after
// construction; a new submission replaces it wholesale.
type Result struct {
	Category    Category    `json:"category"`
	Probability float64     `json:"probability"`
	ReplyPT     string      `json:"reply_pt"`
	ReplyEN     string      `json:"reply_en"`
	DefaultLang string      `json:"reply_lang_default"`
	Explanation Explanation `json:"explanation"`
	TextPreview string      `json:"text_preview"`
}

// Reply returns the draft for lang ("" for unknown languages).
func (r *Result) Reply(lang string) string {
	switch lang {
	case LangPT:
		return r.ReplyPT
	case LangEN:
		return r.ReplyEN
	default:
		return ""
	}
}

// FormState is what the user has entered when pressing submit.
type FormState struct {
	Text         string
	FileAttached bool
}

// IsSubmittable reports whether the form may be sent: a file is attached
// or the trimmed text has at least MinTextLength characters.
func IsSubmittable(f FormState) bool {
	if f.FileAttached {
		return true
	}
	return utf8.RuneCountInString(strings.TrimSpace(f.Text)) >= MinTextLength
}

// FormOf derives the FormState a Request was built from.
func FormOf(req Request) FormState {
	if req.Kind == KindFile {
		return FormState{FileAttached: req.Filename != "" || len(req.Payload) > 0}
	}
	return FormState{Text: req.Text}
}

// DropExtensions are the extensions accepted by drag-and-drop.
var DropExtensions = []string{".pdf", ".txt"}

// ValidateDrop reports whether a dropped file has an accepted extension.
// Files chosen through the picker are not checked here.
func ValidateDrop(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range DropExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ReadFileRequest builds a file submission from a local path. dropped marks
// the drag-and-drop path, which only accepts DropExtensions.
func ReadFileRequest(path string, dropped bool) (Request, error) {
	name := filepath.Base(path)
	if dropped && !ValidateDrop(name) {
		return Request{}, errors.NewValidation(DropMessage)
	}

	data, err := ReadLocalFile(path, MaxAttachmentBytes)
	if err != nil {
		return Request{}, err
	}
	return NewFileRequest(name, data, ""), nil
}
