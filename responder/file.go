package responder

import (
	"os"
	"path/filepath"
	"strings"
)

// Chunker streams a single file in bounded chunks (spec §6
// "FileSystemChunker providing start/nextRead/getFileLen"). FileChunker
// below is the concrete *os.File-backed implementation; the interface keeps
// the responder testable against an in-memory fake.
type Chunker interface {
	Start(path string, chunkSize int) error
	NextRead(buf []byte) (n int, final bool, err error)
	GetFileLen() int64
	Close() error
}

// FileChunker is grounded on badu-http's filetransport.Dir/FileSystem
// pairing (filetransport/types.go): a thin native-filesystem adapter rather
// than the teacher's byte-range/ServeContent machinery, which this
// responder does not need (range requests are not part of the spec).
type FileChunker struct {
	f    *os.File
	size int64
}

func (c *FileChunker) Start(path string, _ int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	c.f = f
	c.size = info.Size()
	return nil
}

func (c *FileChunker) NextRead(buf []byte) (int, bool, error) {
	n, err := c.f.Read(buf)
	if err != nil {
		return n, true, nil
	}
	pos, _ := c.f.Seek(0, os.SEEK_CUR)
	return n, pos >= c.size, nil
}

func (c *FileChunker) GetFileLen() int64 { return c.size }

func (c *FileChunker) Close() error {
	if c.f == nil {
		return nil
	}
	return c.f.Close()
}

// mimeByExt is the extension -> content-type table from spec §4.4.2.
var mimeByExt = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".json": "text/json",
	".js":   "application/javascript",
	".png":  "image/png",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".ico":  "image/x-icon",
	".svg":  "image/svg+xml",
	".eot":  "font/eot",
	".woff": "font/woff",
	".woff2": "font/woff2",
	".ttf":  "font/ttf",
	".xml":  "text/xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/x-gzip",
}

func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := mimeByExt[ext]; ok {
		return ct
	}
	return "text/plain"
}

// NewFileChunker constructs the default *os.File-backed Chunker. Exposed as
// a var so tests can substitute a fake.
var NewFileChunker = func() Chunker { return &FileChunker{} }

// File implements the File Responder variant (spec §4.4.2).
type File struct {
	chunker        Chunker
	contentType    string
	gzipEncoded    bool
	sendBudget     int
	buf            []byte
	finalChunkSent bool
	active         bool
	openErr        error
}

// NewFile resolves path (serving path+".gz" instead when acceptGzip is true
// and the sibling exists), opens it through newChunker, and determines the
// MIME type from the original (non-.gz) extension.
func NewFile(path string, acceptGzip bool, sendBudget int, newChunker func() Chunker) *File {
	f := &File{
		contentType: mimeTypeFor(path),
		sendBudget:  sendBudget,
		active:      true,
	}
	if newChunker == nil {
		newChunker = NewFileChunker
	}
	f.chunker = newChunker()

	openPath := path
	if acceptGzip {
		gzPath := path + ".gz"
		if _, err := os.Stat(gzPath); err == nil {
			openPath = gzPath
			f.gzipEncoded = true
		}
	}
	if err := f.chunker.Start(openPath, sendBudget); err != nil {
		f.openErr = err
		f.active = false
	}
	return f
}

func (f *File) HandleData([]byte) bool { return true }

func (f *File) StartResponding(RawSend) bool { return f.openErr == nil }

func (f *File) GetResponseNext(maxLen int) []byte {
	if !f.active || f.finalChunkSent {
		return nil
	}
	if maxLen > f.sendBudget {
		maxLen = f.sendBudget
	}
	if len(f.buf) < maxLen {
		f.buf = make([]byte, maxLen)
	}
	n, final, err := f.chunker.NextRead(f.buf[:maxLen])
	if err != nil {
		f.active = false
		return nil
	}
	if final {
		f.finalChunkSent = true
		f.active = false
		f.chunker.Close()
	}
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, f.buf[:n])
	return out
}

func (f *File) Service() {}

func (f *File) IsActive() bool { return f.active }

func (f *File) IsStdHeaderRequired() bool { return true }

func (f *File) GetContentType() string { return f.contentType }

func (f *File) GetContentLength() int {
	if f.openErr != nil {
		return -1
	}
	return int(f.chunker.GetFileLen())
}

func (f *File) LeaveConnOpen() bool { return false }

func (f *File) ReadyForData() bool { return true }

func (f *File) GetResponderType() Type { return TypeFile }

// GetContentEncoding returns "gzip" when the .gz sibling was served, or ""
// to indicate no Content-Encoding header is needed (responder.ContentEncoder).
func (f *File) GetContentEncoding() string {
	if f.gzipEncoded {
		return "gzip"
	}
	return ""
}
