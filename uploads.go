package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	maxUploadSizeBytes int64 = 5 * 1024 * 1024
	thumbnailWidth           = 200
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// uploadRecipeImage stores the photo and a 200px-wide JPEG thumbnail,
// then points the recipe at both.
func (a *api) uploadRecipeImage(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "Uploads", "uploadRecipeImage", err)
		return
	}
	if a.store == nil {
		a.faults.Respond(c, "Uploads", "uploadRecipeImage", errStorageNotConfigured)
		return
	}
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		a.faults.Respond(c, "Uploads", "uploadRecipeImage", err)
		return
	}
	previous, err := models.GetRecipe(ctx, id)
	if err != nil {
		a.faults.Respond(c, "Uploads", "uploadRecipeImage", err)
		return
	}

	data, mimeType, err := readImageUpload(c)
	if err != nil {
		a.faults.Respond(c, "Uploads", "uploadRecipeImage", err)
		return
	}
	thumbnail, err := createThumbnail(data)
	if err != nil {
		a.faults.Respond(c, "Uploads", "uploadRecipeImage", fmt.Errorf("%w: image could not be decoded", utils.ErrInvalidInput))
		return
	}

	objectKey := path.Join(userId, "recipes", strconv.Itoa(id), uuid.NewString()+imageExtensions[mimeType])
	thumbKey := thumbnailObjectKey(objectKey)
	err = a.faults.Retry(ctx, "uploadRecipeImage", func() error {
		if err := a.store.Put(ctx, objectKey, data, mimeType); err != nil {
			return err
		}
		return a.store.Put(ctx, thumbKey, thumbnail, "image/jpeg")
	})
	if err != nil {
		a.faults.Respond(c, "Uploads", "uploadRecipeImage", err)
		return
	}

	recipe, err := models.SetRecipeImage(ctx, id, utils.BuildObjectAccessURL(objectKey), utils.BuildObjectAccessURL(thumbKey))
	if err != nil {
		a.faults.Respond(c, "Uploads", "uploadRecipeImage", err)
		return
	}
	a.logger.WithFields(logrus.Fields{
		"user_id":    userId,
		"recipe_id":  id,
		"mime_type":  mimeType,
		"size":       len(data),
		"object_key": objectKey,
	}).Info("[upload.recipeImage]")

	a.deleteRecipeImages(ctx, previous)
	c.JSON(http.StatusOK, recipe)
}

// readImageUpload reads the multipart "file" field and sniffs its type.
func readImageUpload(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSizeBytes+1024*1024)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: file is required", utils.ErrInvalidInput)
	}
	if fileHeader.Size > maxUploadSizeBytes {
		return nil, "", fmt.Errorf("%w: file size exceeds 5MB limit", utils.ErrInvalidInput)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxUploadSizeBytes {
		return nil, "", fmt.Errorf("%w: file size exceeds 5MB limit", utils.ErrInvalidInput)
	}
	mimeType := http.DetectContentType(data)
	if _, ok := imageExtensions[mimeType]; !ok {
		return nil, "", fmt.Errorf("%w: unsupported image type %s", utils.ErrInvalidInput, mimeType)
	}
	return data, mimeType, nil
}

func createThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumbnail := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func thumbnailObjectKey(objectKey string) string {
	ext := path.Ext(objectKey)
	return strings.TrimSuffix(objectKey, ext) + "_thumb.jpg"
}

// deleteRecipeImages removes stored photos of recipe. Failures are logged.
func (a *api) deleteRecipeImages(ctx context.Context, recipe *models.Recipe) {
	if a.store == nil || recipe == nil {
		return
	}
	for _, u := range []string{recipe.ImageUrl, recipe.ThumbnailUrl} {
		key := utils.ExtractObjectKeyFromURL(u)
		if key == "" || !strings.HasPrefix(key, recipe.UserId+"/") {
			continue
		}
		if err := a.store.Delete(ctx, key); err != nil {
			a.logger.WithFields(logrus.Fields{
				"recipe_id":  recipe.ID,
				"object_key": key,
			}).Warn("delete recipe image: " + err.Error())
		}
	}
}
