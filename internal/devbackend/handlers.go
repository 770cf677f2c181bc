package devbackend

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/logging"
	"github.com/example/pneumoscan/internal/validator"
)

// MaxUploadSize caps the image accepted by POST /predict.
const MaxUploadSize = validator.MaxUploadSize

// multipartOverhead leaves room for the form envelope around the image.
const multipartOverhead = 64 * 1024

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// RegisterRoutes wires the HTTP handlers to the Gin router. A nil
// authMiddleware leaves the prediction endpoint open.
func RegisterRoutes(router *gin.Engine, svc *Service, authMiddleware gin.HandlerFunc, logger *zap.Logger) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/check-mode", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"demo_mode": svc.DemoMode()})
	})

	handlers := []gin.HandlerFunc{predictHandler(svc, logger.Named("handlers"))}
	if authMiddleware != nil {
		handlers = append([]gin.HandlerFunc{authMiddleware}, handlers...)
	}
	router.POST("/predict", handlers...)
}

func predictHandler(svc *Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		opLogger := logging.WithOperation(logger, "handlers.predict", requestID)
		if clientID, ok := ClientID(c.Request.Context()); ok {
			opLogger = opLogger.With(zap.String("client_id", clientID))
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+multipartOverhead)

		file, err := c.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File size is too large. Please upload an image under 5MB."})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
			return
		}

		if file.Filename == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
			return
		}
		if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(file.Filename))]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Please upload a JPG, JPEG, or PNG file."})
			return
		}
		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File size is too large. Please upload an image under 5MB."})
			return
		}

		src, err := file.Open()
		if err != nil {
			opLogger.Error("unable to open upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing the image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			opLogger.Error("failed to read upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing the image"})
			return
		}

		prediction, err := svc.Predict(c.Request.Context(), requestID, file.Filename, data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing the image"})
			return
		}

		c.JSON(http.StatusOK, prediction)
	}
}
