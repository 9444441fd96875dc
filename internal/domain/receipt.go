package domain

// UploadReceipt records a completed storage upload.
// Corresponds to upload_receipts table in ClickHouse.
type UploadReceipt struct {
	ID          string // transaction id returned by the storage node
	URI         string // gateway URI serving the content
	FileName    string // original file name
	ContentType string // content type tag sent with the upload
	Bytes       int64  // payload size in bytes
	Price       Amount // marked-up price quoted for the batch containing this file
	UploadedAt  int64  // Unix timestamp in milliseconds
}
