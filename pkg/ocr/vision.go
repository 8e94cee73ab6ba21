package ocr

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionRecognizer runs TEXT_DETECTION on Google Cloud Vision.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionRecognizer dials Cloud Vision. With an empty credentialsFile the
// client uses application default credentials (GOOGLE_APPLICATION_CREDENTIALS).
func NewVisionRecognizer(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*VisionRecognizer, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionRecognizer{client: client}, nil
}

// Recognize returns the full-text annotation of image.
func (v *VisionRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision text detection: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	return visionText(resp.GetResponses()[0])
}

// visionText picks the transcription out of one annotate response. The first
// text annotation holds the whole text; the rest are single words.
func visionText(res *visionpb.AnnotateImageResponse) (string, error) {
	if msg := res.GetError().GetMessage(); msg != "" {
		return "", &DelegateError{Provider: "Vision", Message: msg}
	}
	anns := res.GetTextAnnotations()
	if len(anns) == 0 {
		return "", nil
	}
	return anns[0].GetDescription(), nil
}

func (v *VisionRecognizer) Close() error { return v.client.Close() }
