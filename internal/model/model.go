// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ImageRecord - запись галереи, привязанная к владельцу
type ImageRecord struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Evaluation  string    `json:"evaluation,omitempty"`
	ImagePath   string    `json:"image_path"`
	OwnerID     string    `json:"-"`
	DateCreated time.Time `json:"date_created"`
}

//---------------------

type BackendKind string

const (
	BackendDefault BackendKind = "default"
	BackendChat    BackendKind = "chat"
	BackendCustom  BackendKind = "custom"
)

// BackendSelector - выбор бэкенда для одного вызова. APIKey и Endpoint взаимоисключающие
type BackendSelector struct {
	Kind     BackendKind
	APIKey   string
	Endpoint string
	Prompt   string
}

// InferenceRequest - тело запроса на генерацию описаний
type InferenceRequest struct {
	ImageBase64Array []string `json:"ImageBase64Array"`
	Prompt           string   `json:"Prompt,omitempty"`
}

// ProcessingResult - итог обработки пачки. Err не сериализуется, по нему хендлер выбирает код ответа
type ProcessingResult struct {
	Success      bool     `json:"-"`
	Message      string   `json:"-"`
	Err          error    `json:"-"`
	Descriptions []string `json:"Descriptions"`
}

type EvaluationRequest struct {
	Description []string `json:"description"`
}

//-------------------

// UploadFile - один файл из multipart-формы
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// CleanupTask - сообщение в очередь на удаление файла из хранилища
type CleanupTask struct {
	ImagePath string `json:"image_path"`
	Reason    string `json:"reason"`
}

const (
	ReasonRecordDeleted = "record_deleted"
	ReasonOrphan        = "orphan"
)

//-------------------

// GalleryRequest - параметры страницы галереи как их присылает клиент
type GalleryRequest struct {
	SortOrder     string `form:"sortOrder"`
	CurrentFilter string `form:"currentFilter"`
	SearchString  string `form:"searchString"`
	PageNumber    int    `form:"pageNumber"`
}

const (
	SortDateAsc  = "Date"
	SortDateDesc = "date_desc"
	OrderASC     = "ASC"
	OrderDESC    = "DESC"
)

// GalleryQuery - составной запрос к записям владельца. Нулевые Limit/Offset - без пагинации
type GalleryQuery struct {
	Search string
	Order  string
	Limit  int
	Offset int
}

type GalleryPage struct {
	Images        []ImageRecord `json:"images"`
	PageIndex     int           `json:"page_index"`
	TotalPages    int           `json:"total_pages"`
	HasPrevious   bool          `json:"has_previous"`
	HasNext       bool          `json:"has_next"`
	CurrentFilter string        `json:"current_filter"`
	SortOrder     string        `json:"sort_order"`
}

type UpdateDescriptionRequest struct {
	ImageID     string `json:"ImageId"`
	Description string `json:"Description"`
}

// ------------------

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later") // 500
	ErrNilRequest        error = errors.New("Request cannot be null.")               // 400
	ErrEmptyImageList    error = errors.New("Image list cannot be empty.")           // 400
	ErrNotBase64         error = errors.New("It is not a base64String")              // 400
	ErrNullDescription   error = errors.New("Description returned as null.")         // 400
	ErrEmptyAPIKey       error = errors.New("API key cannot be empty.")              // 400
	ErrEmptyEndpoint     error = errors.New("Custom endpoint cannot be empty.")      // 400
	ErrBadEndpoint       error = errors.New("Custom endpoint is not a valid URL.")   // 400
	ErrBackendFailed     error = errors.New("inference backend failed")              // 400
	ErrInvalidRequest    error = errors.New("Invalid request.")                      // 400
	ErrNoImageFile       error = errors.New("No image file provided.")               // 400
	ErrUnsupportedFormat error = errors.New("unsupported image format")              // 400
	ErrCorruptImage      error = errors.New("corrupt image container")               // 400
	ErrMetadataTooLarge  error = errors.New("metadata does not fit into the image")   // 400
	ErrIncorrectID       error = errors.New("incorrect image id")                    // 400
	ErrImageNotFound     error = errors.New("Image not found.")                      // 404
	ErrForbidden         error = errors.New("No user")                               // 403
	ErrSaveFailed        error = errors.New("An error occurred while processing the image")
	ErrDownloadFailed    error = errors.New("Error processing your download.") // 500
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
}
