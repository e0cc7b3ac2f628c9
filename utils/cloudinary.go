package utils

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/spf13/viper"
)

var cloudinaryClient *cloudinary.Cloudinary

// LoadCloudinaryConfig loads the Cloudinary configuration from the YAML file.
func LoadCloudinaryConfig() error {
	viper.SetConfigFile("utils/cloudinary.yaml")
	viper.SetConfigType("yaml")

	viper.SetDefault("cloudinary.cloudName", "default_cloud_name")
	viper.SetDefault("cloudinary.apiKey", "default_api_key")
	viper.SetDefault("cloudinary.apiSecret", "default_api_secret")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading cloudinary config file: %w", err)
	}
	return nil
}

// InitCloudinary initializes the Cloudinary client used for archiving
// inbound WhatsApp media.
func InitCloudinary() error {
	if err := LoadCloudinaryConfig(); err != nil {
		return err
	}

	cloudName := viper.GetString("cloudinary.cloudName")
	apiKey := viper.GetString("cloudinary.apiKey")
	apiSecret := viper.GetString("cloudinary.apiSecret")

	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return fmt.Errorf("cloudinary credentials not set in configuration")
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return fmt.Errorf("utils.InitCloudinary: failed to initialize Cloudinary: %w", err)
	}
	cloudinaryClient = cld
	return nil
}

// ArchiveMedia uploads inbound media (voice note, image) to Cloudinary and
// returns the archived secure URL. Used for the conversation audit trail.
func ArchiveMedia(ctx context.Context, media io.Reader, folder string) (string, error) {
	if cloudinaryClient == nil {
		return "", fmt.Errorf("cloudinary client not initialized")
	}
	resp, err := cloudinaryClient.Upload.Upload(ctx, media, uploader.UploadParams{Folder: folder})
	if err != nil {
		return "", fmt.Errorf("failed to archive media: %w", err)
	}
	return resp.SecureURL, nil
}
