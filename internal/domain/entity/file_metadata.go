package entity

import (
	"time"
)

// FileMetadata records an object written to avatar storage.
type FileMetadata struct {
	ID         string    `json:"id" firestore:"id"`
	URL        string    `json:"url" firestore:"url"`
	ObjectName string    `json:"objectName" firestore:"objectName"`
	Purpose    string    `json:"purpose" firestore:"purpose"`
	UploadedBy string    `json:"uploadedBy" firestore:"uploadedBy"`
	Filename   string    `json:"filename" firestore:"filename"`
	FileType   string    `json:"fileType" firestore:"fileType"`
	FileSize   int64     `json:"fileSize" firestore:"fileSize"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}
