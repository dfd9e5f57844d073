package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"ai-docfill-be/internal/dto"
	"ai-docfill-be/internal/pkg/logger"
	"ai-docfill-be/internal/repository/contract"
	"ai-docfill-be/pkg/docx"
	"ai-docfill-be/pkg/events"
	"ai-docfill-be/pkg/placeholder"
	"ai-docfill-be/pkg/prompt"
	"ai-docfill-be/pkg/render"
	"ai-docfill-be/pkg/store"
)

const DefaultDocType = "generic"

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidValues   = errors.New("values must be a JSON object")
	ErrUnsupportedFile = errors.New("uploaded file is not a .docx document")
)

type IDocumentService interface {
	Upload(ctx context.Context, src io.Reader, docType string) (*dto.UploadDocumentResponse, error)
	Fill(ctx context.Context, req *dto.FillDocumentRequest) (*dto.FillDocumentResponse, error)
	GetSession(ctx context.Context, fileID string) (*dto.SessionResponse, error)
	DocTypes(ctx context.Context) (*dto.DocTypesResponse, error)
	Expire(fileID string)
}

type documentService struct {
	artifacts contract.ArtifactRepository
	sessions  contract.SessionRepository
	prompts   *prompt.Registry
	renderer  *render.Renderer
	publisher IPublisherService
	logger    logger.ILogger
}

func NewDocumentService(
	artifacts contract.ArtifactRepository,
	sessions contract.SessionRepository,
	prompts *prompt.Registry,
	renderer *render.Renderer,
	publisher IPublisherService,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		artifacts: artifacts,
		sessions:  sessions,
		prompts:   prompts,
		renderer:  renderer,
		publisher: publisher,
		logger:    log,
	}
}

func (s *documentService) Upload(ctx context.Context, src io.Reader, docType string) (*dto.UploadDocumentResponse, error) {
	if docType == "" {
		docType = DefaultDocType
	}

	fileID := s.artifacts.NewID()
	path, err := s.artifacts.SourcePath(fileID)
	if err != nil {
		return nil, err
	}

	if err := writeFile(path, src); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	placeholders, err := s.convert(path)
	if err != nil {
		if rmErr := s.artifacts.Remove(fileID); rmErr != nil {
			s.logger.Warn("DOCUMENT", "Failed to remove rejected upload", map[string]interface{}{
				"file_id": fileID,
				"error":   rmErr.Error(),
			})
		}
		return nil, err
	}

	now := time.Now().UTC()
	session := &store.Session{
		ID:           fileID,
		DocType:      docType,
		Placeholders: placeholders,
		Answers:      map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("DOCUMENT", "Document uploaded", map[string]interface{}{
		"file_id":      fileID,
		"doc_type":     docType,
		"placeholders": len(placeholders),
	})
	s.publisher.Publish(ctx, events.DocumentUploaded(fileID, docType, placeholders))

	return &dto.UploadDocumentResponse{
		FileID:       fileID,
		Placeholders: placeholders,
		DocType:      docType,
	}, nil
}

// convert rewrites bracket placeholders into template tokens in place and
// returns the token names in document order.
func (s *documentService) convert(path string) ([]string, error) {
	doc, err := docx.Open(path)
	if err != nil {
		if errors.Is(err, docx.ErrNotPackage) || errors.Is(err, docx.ErrNotDocx) || errors.Is(err, docx.ErrMalformedXML) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		return nil, err
	}

	changed, err := doc.MapText(func(text string) (string, error) {
		return placeholder.Convert(text), nil
	})
	if err != nil {
		return nil, fmt.Errorf("convert placeholders: %w", err)
	}
	if changed > 0 {
		if err := doc.Save(path); err != nil {
			return nil, fmt.Errorf("save converted document: %w", err)
		}
	}

	texts, err := doc.Texts()
	if err != nil {
		return nil, err
	}
	return placeholder.Extract(texts...), nil
}

func (s *documentService) Fill(ctx context.Context, req *dto.FillDocumentRequest) (*dto.FillDocumentResponse, error) {
	values, err := parseValues(req.Values)
	if err != nil {
		return nil, err
	}

	if !s.artifacts.Exists(req.FileID) {
		return nil, ErrFileNotFound
	}
	srcPath, err := s.artifacts.SourcePath(req.FileID)
	if err != nil {
		return nil, ErrFileNotFound
	}
	outPath, err := s.artifacts.FilledPath(req.FileID)
	if err != nil {
		return nil, ErrFileNotFound
	}

	doc, err := docx.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open template: %w", err)
	}

	result, err := s.renderer.RenderDocument(doc, values)
	if err != nil {
		return nil, err
	}
	if err := doc.Save(outPath); err != nil {
		return nil, fmt.Errorf("save filled document: %w", err)
	}

	if len(result.Missing) > 0 {
		s.logger.Warn("DOCUMENT", "Placeholders rendered without a value", map[string]interface{}{
			"file_id": req.FileID,
			"missing": result.Missing,
		})
	}
	s.logger.Info("DOCUMENT", "Document filled", map[string]interface{}{
		"file_id":    req.FileID,
		"paragraphs": result.Paragraphs,
	})
	s.publisher.Publish(ctx, events.DocumentFilled(req.FileID, len(values), result.Missing))

	return &dto.FillDocumentResponse{Path: outPath, Missing: result.Missing}, nil
}

func (s *documentService) GetSession(ctx context.Context, fileID string) (*dto.SessionResponse, error) {
	session, found, err := s.sessions.Get(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, ErrFileNotFound
	}

	return &dto.SessionResponse{
		FileID:       session.ID,
		DocType:      session.DocType,
		Placeholders: session.Placeholders,
		Answers:      session.Answers,
		Unfilled:     placeholder.Unfilled(session.Placeholders, session.Answers),
		History:      session.History.Turns,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}, nil
}

func (s *documentService) DocTypes(_ context.Context) (*dto.DocTypesResponse, error) {
	types, err := s.prompts.List()
	if err != nil {
		return nil, fmt.Errorf("list doc types: %w", err)
	}
	return &dto.DocTypesResponse{DocTypes: types}, nil
}

// Expire removes the artifacts of a session that left the store. It runs on
// the cache janitor goroutine.
func (s *documentService) Expire(fileID string) {
	if err := s.artifacts.Remove(fileID); err != nil {
		s.logger.Warn("DOCUMENT", "Failed to remove expired artifacts", map[string]interface{}{
			"file_id": fileID,
			"error":   err.Error(),
		})
		return
	}
	s.logger.Info("DOCUMENT", "Session expired", map[string]interface{}{"file_id": fileID})
	s.publisher.Publish(context.Background(), events.SessionExpired(fileID))
}

// parseValues decodes the values form field. Strings are used as is, null
// renders empty and any other JSON value renders as its JSON text.
func parseValues(raw string) (map[string]string, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValues, err)
	}
	if decoded == nil {
		return nil, ErrInvalidValues
	}

	values := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			values[k] = val
		case nil:
			values[k] = ""
		case float64:
			values[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidValues, err)
			}
			values[k] = string(b)
		}
	}
	return values, nil
}

func writeFile(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
