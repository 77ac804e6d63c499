package api

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"cvmaker/internal/api/middleware"
	"cvmaker/internal/database"
	"cvmaker/internal/storage"
)

const profilePhotoPresignTTL = 15 * time.Minute

// AssetHandler handles profile photo upload and access. Uploads are scanned
// by clamd before they reach the bucket.
type AssetHandler struct {
	db        *gorm.DB
	storage   *storage.Client
	logger    *slog.Logger
	clamdAddr string
}

func NewAssetHandler(db *gorm.DB, storageClient *storage.Client, logger *slog.Logger, clamdAddr string) *AssetHandler {
	return &AssetHandler{
		db:        db,
		storage:   storageClient,
		logger:    logger,
		clamdAddr: clamdAddr,
	}
}

// UploadProfilePhoto scans, stores and links a new profile photo. The
// previous photo object is removed after the link is updated.
func (h *AssetHandler) UploadProfilePhoto(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		BadRequest(c, "only image uploads are accepted")
		return
	}

	if h.clamdAddr != "" {
		clean, err := h.scanFile(file)
		if err != nil {
			h.logger.Error("scan file failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer fileReader.Close()

	ctx := c.Request.Context()
	objectKey := fmt.Sprintf("profile-photos/%d/%s", userID, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		h.logger.Error("upload profile photo failed", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	photoURL, err := h.storage.GeneratePresignedURL(ctx, objectKey, profilePhotoPresignTTL)
	if err != nil {
		h.logger.Error("generate profile photo url failed", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		h.logger.Error("load user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	oldKey := user.ProfilePhotoKey

	update := map[string]any{
		"profile_photo_url": photoURL,
		"profile_photo_key": objectKey,
	}
	if err := h.db.WithContext(ctx).Model(&user).Updates(update).Error; err != nil {
		h.logger.Error("update profile photo failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if oldKey != "" && oldKey != objectKey {
		if err := h.storage.DeleteObject(ctx, oldKey); err != nil {
			h.logger.Warn("delete stale profile photo failed", slog.Any("error", err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"objectKey": objectKey,
		"url":       photoURL,
	})
}

// ProfilePhotoURL returns a fresh presigned link for the caller's photo.
func (h *AssetHandler) ProfilePhotoURL(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		h.logger.Error("load user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if user.ProfilePhotoKey == "" {
		NotFound(c, "no profile photo")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(ctx, user.ProfilePhotoKey, profilePhotoPresignTTL)
	if err != nil {
		h.logger.Error("generate presigned url failed", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *AssetHandler) scanFile(file *multipart.FileHeader) (bool, error) {
	clamdClient := clamd.NewClamd(h.clamdAddr)

	fileReader, err := file.Open()
	if err != nil {
		return false, err
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		return false, err
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}
