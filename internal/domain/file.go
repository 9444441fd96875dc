package domain

// DefaultContentType is used when a file has no explicit content type.
const DefaultContentType = "application/octet-stream"

// File is an opaque payload destined for decentralized storage.
type File struct {
	FileName    string
	ContentType string
	Content     []byte
}

// NewFile creates a File, defaulting the content type when empty.
func NewFile(name, contentType string, content []byte) File {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return File{
		FileName:    name,
		ContentType: contentType,
		Content:     content,
	}
}

// NewJSONFile wraps an already-encoded JSON document as an uploadable file.
func NewJSONFile(name string, doc []byte) File {
	return File{
		FileName:    name,
		ContentType: "application/json",
		Content:     doc,
	}
}

// Size returns the payload length in bytes.
func (f File) Size() int {
	return len(f.Content)
}
