package assetstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"variation-canvas-server/modules/common/config"
	"variation-canvas-server/modules/common/utils"
)

// Supabase - Supabase Storage 기반 Store 구현.
// 업로드는 storage REST를 직접 호출하고,
// attach 레코드는 supabase-go로 남긴다.
type Supabase struct {
	supabase *supabase.Client
	client   *http.Client
}

func NewSupabase() *Supabase {
	cfg := config.GetConfig()

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ [AssetStore] Failed to create Supabase client: %v", err)
		return nil
	}

	log.Println("✅ [AssetStore] Supabase asset store initialized")
	return &Supabase{
		supabase: supabaseClient,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// EnsureStored - 원본 ref를 durable storage로 보장.
// 이미 우리 storage URL이면 그대로 반환 (멱등 no-op).
func (s *Supabase) EnsureStored(ctx context.Context, sourceRef string) (string, error) {
	cfg := config.GetConfig()

	if sourceRef == "" {
		return "", &RefError{Ref: sourceRef, Reason: "empty source ref"}
	}

	// 이미 저장된 ref 패턴이면 no-op
	if s.isStoredRef(sourceRef) {
		log.Printf("♻️  [AssetStore] Ref already stored, skipping upload")
		return sourceRef, nil
	}

	// 전송 가능한 바이너리로 변환
	imageData, err := s.loadSourceBytes(ctx, sourceRef)
	if err != nil {
		return "", err
	}

	filePath, fileSize, err := s.uploadImage(ctx, imageData)
	if err != nil {
		return "", err
	}

	if _, err := s.createAttachRecord(ctx, filePath, fileSize); err != nil {
		// 레코드 실패는 업로드 자체를 무효화하지 않는다
		log.Printf("⚠️ [AssetStore] Failed to create attach record: %v", err)
	}

	storedRef := cfg.SupabaseStorageBaseURL + filePath
	log.Printf("✅ [AssetStore] Source stored: %s (%d bytes)", filePath, fileSize)
	return storedRef, nil
}

// Resolve - stored ref를 signed URL로 변환
func (s *Supabase) Resolve(ctx context.Context, storedRef string) (string, error) {
	cfg := config.GetConfig()

	if strings.HasPrefix(storedRef, "data:") {
		return "", &RefError{Ref: storedRef, Reason: "data URLs cannot be resolved to a fetchable URL"}
	}

	parsed, err := url.Parse(storedRef)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &RefError{Ref: storedRef, Reason: "malformed ref"}
	}

	objectPath, ok := s.objectPathFromRef(storedRef)
	if !ok {
		return "", &RefError{Ref: storedRef, Reason: "ref does not point into the storage bucket"}
	}

	// POST /storage/v1/object/sign/<bucket>/<path>
	signURL := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s",
		cfg.SupabaseURL, cfg.SupabaseBucket, objectPath)

	body, _ := json.Marshal(map[string]int{"expiresIn": cfg.SignedURLTTLSeconds})

	req, err := http.NewRequestWithContext(ctx, "POST", signURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create sign request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to sign storage object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sign request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var signResp struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signResp); err != nil {
		return "", fmt.Errorf("failed to decode sign response: %w", err)
	}
	if signResp.SignedURL == "" {
		return "", fmt.Errorf("sign response has no signedURL")
	}

	signedURL := cfg.SupabaseURL + "/storage/v1" + signResp.SignedURL
	log.Printf("🔗 [AssetStore] Signed URL issued for %s (ttl: %ds)", objectPath, cfg.SignedURLTTLSeconds)
	return signedURL, nil
}

// StoreRendered - 렌더 결과물을 업로드하고 public URL 반환.
// 원본과 경로를 분리해서 (variation-results/) 정리 정책을 따로 가져간다.
func (s *Supabase) StoreRendered(ctx context.Context, slotID string, imageData []byte) (string, error) {
	cfg := config.GetConfig()

	contentType := "image/webp"
	webpData, err := utils.ConvertPNGToWebP(imageData, 90.0)
	if err != nil {
		log.Printf("⚠️ [AssetStore] WebP conversion failed for %s, uploading original: %v", slotID, err)
		webpData = imageData
		contentType = http.DetectContentType(imageData)
	}

	filePath := fmt.Sprintf("variation-results/%s.webp", slotID)

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		cfg.SupabaseURL, cfg.SupabaseBucket, filePath)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(webpData))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload rendered image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	if _, err := s.createAttachRecord(ctx, filePath, int64(len(webpData))); err != nil {
		log.Printf("⚠️ [AssetStore] Failed to create attach record: %v", err)
	}

	log.Printf("✅ [AssetStore] Rendered image stored: %s (%d bytes)", filePath, len(webpData))
	return cfg.SupabaseStorageBaseURL + filePath, nil
}

// isStoredRef - 우리 storage URL 패턴인지 확인
func (s *Supabase) isStoredRef(ref string) bool {
	cfg := config.GetConfig()
	if cfg.SupabaseStorageBaseURL != "" && strings.HasPrefix(ref, cfg.SupabaseStorageBaseURL) {
		return true
	}
	return strings.HasPrefix(ref, cfg.SupabaseURL) && strings.Contains(ref, "/storage/v1/object/")
}

// objectPathFromRef - stored ref에서 bucket 내부 경로 추출
func (s *Supabase) objectPathFromRef(ref string) (string, bool) {
	cfg := config.GetConfig()

	if cfg.SupabaseStorageBaseURL != "" && strings.HasPrefix(ref, cfg.SupabaseStorageBaseURL) {
		return strings.TrimPrefix(ref, cfg.SupabaseStorageBaseURL), true
	}

	marker := "/storage/v1/object/public/" + cfg.SupabaseBucket + "/"
	if idx := strings.Index(ref, marker); idx >= 0 {
		return ref[idx+len(marker):], true
	}

	marker = "/storage/v1/object/" + cfg.SupabaseBucket + "/"
	if idx := strings.Index(ref, marker); idx >= 0 {
		return ref[idx+len(marker):], true
	}

	return "", false
}

// loadSourceBytes - sourceRef를 바이너리로 변환 (data URL 또는 외부 URL)
func (s *Supabase) loadSourceBytes(ctx context.Context, sourceRef string) ([]byte, error) {
	if strings.HasPrefix(sourceRef, "data:") {
		idx := strings.Index(sourceRef, ";base64,")
		if idx < 0 {
			return nil, &RefError{Ref: sourceRef, Reason: "data URL is not base64 encoded"}
		}
		data, err := base64.StdEncoding.DecodeString(sourceRef[idx+len(";base64,"):])
		if err != nil {
			return nil, &RefError{Ref: sourceRef, Reason: "invalid base64 payload"}
		}
		return data, nil
	}

	if strings.HasPrefix(sourceRef, "http://") || strings.HasPrefix(sourceRef, "https://") {
		req, err := http.NewRequestWithContext(ctx, "GET", sourceRef, nil)
		if err != nil {
			return nil, &RefError{Ref: sourceRef, Reason: "malformed ref"}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download source image: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download source image: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	return nil, &RefError{Ref: sourceRef, Reason: "unrecognized ref scheme"}
}

// uploadImage - Supabase Storage에 이미지 업로드 (WebP 변환)
func (s *Supabase) uploadImage(ctx context.Context, imageData []byte) (string, int64, error) {
	cfg := config.GetConfig()

	contentType := "image/webp"
	webpData, err := utils.ConvertPNGToWebP(imageData, 90.0)
	if err != nil {
		log.Printf("⚠️ [AssetStore] WebP conversion failed, uploading original: %v", err)
		webpData = imageData
		contentType = http.DetectContentType(imageData)
	}

	// 파일명 생성
	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	fileName := fmt.Sprintf("source_%d_%s.webp", timestamp, uuid.New().String()[:8])
	filePath := fmt.Sprintf("variation-sources/%s", fileName)

	log.Printf("📤 [AssetStore] Uploading source image: %s", filePath)

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		cfg.SupabaseURL, cfg.SupabaseBucket, filePath)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(webpData))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return filePath, int64(len(webpData)), nil
}

// createAttachRecord - canvas_attach 테이블에 레코드 생성
func (s *Supabase) createAttachRecord(ctx context.Context, filePath string, fileSize int64) (int, error) {
	fileName := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		fileName = filePath[idx+1:]
	}

	insertData := map[string]interface{}{
		"attach_original_name": fileName,
		"attach_file_name":     fileName,
		"attach_file_path":     filePath,
		"attach_file_size":     fileSize,
		"attach_file_type":     "image/webp",
		"attach_storage_type":  "supabase",
	}

	data, _, err := s.supabase.From("canvas_attach").
		Insert(insertData, false, "", "", "").
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to insert attach record: %w", err)
	}

	var attaches []struct {
		AttachID int64 `json:"attach_id"`
	}
	if err := json.Unmarshal(data, &attaches); err != nil {
		return 0, fmt.Errorf("failed to parse attach response: %w", err)
	}
	if len(attaches) == 0 {
		return 0, fmt.Errorf("no attach record returned")
	}

	return int(attaches[0].AttachID), nil
}
