package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/storelens/storelens/pkg/types"
	"github.com/storelens/storelens/server/internal/ingest"
	"github.com/storelens/storelens/server/internal/report"
	"github.com/storelens/storelens/server/internal/rules"
)

// errMissingFiles is returned when either multipart field is absent.
var errMissingFiles = &types.InputError{Err: errors.New("both files are required")}

// analyze runs one request end to end: read both uploads, compute, evaluate
// rules and assemble the report. Nothing from the request outlives it.
func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) (rep *report.Report, err error) {
	reqID := middleware.GetReqID(r.Context())
	defer func() {
		h.metrics.RecordAnalysis(err)
		if err == nil {
			return
		}
		kind := types.KindOf(err)
		if kind == types.KindUnexpected {
			h.logger.Error("analysis failed", "request_id", reqID, "kind", kind.String(), "err", err)
		} else {
			h.logger.Warn("analysis rejected", "request_id", reqID, "kind", kind.String(), "err", err)
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, &types.InputError{Err: fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)}
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return nil, errMissingFiles
		default:
			return nil, &types.InputError{Err: fmt.Errorf("parse upload: %w", err)}
		}
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	ordersFile, ordersHdr, oerr := r.FormFile("orders")
	invFile, invHdr, ierr := r.FormFile("inventory")
	if oerr == nil {
		defer ordersFile.Close()
	}
	if ierr == nil {
		defer invFile.Close()
	}
	if oerr != nil || ierr != nil {
		return nil, errMissingFiles
	}

	ordersRC, err := h.open(types.TableOrders, ordersFile, ordersHdr)
	if err != nil {
		return nil, err
	}
	defer ordersRC.Close()
	orders, err := h.reader.Orders(ordersRC, formatOf(ordersHdr))
	if err != nil {
		return nil, err
	}

	invRC, err := h.open(types.TableInventory, invFile, invHdr)
	if err != nil {
		return nil, err
	}
	defer invRC.Close()
	inventory, err := h.reader.Inventory(invRC, formatOf(invHdr))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := h.engine.Compute(orders.Records, inventory.Records, h.now())
	h.metrics.RecordComputeLatency(time.Since(start))
	if err != nil {
		return nil, err
	}

	issues := make([]types.CoercionIssue, 0, len(orders.Issues)+len(inventory.Issues))
	issues = append(issues, orders.Issues...)
	issues = append(issues, inventory.Issues...)
	h.metrics.RecordIssues(issues)

	var flags []rules.Flag
	if h.rules != nil {
		flags = h.rules.Evaluate(res)
		for _, f := range flags {
			h.metrics.RecordRule(f.Rule, f.Severity)
		}
	}

	rep = report.New(uuid.NewString(), res, issues, flags)
	if h.rules != nil {
		h.rules.Notify(rep.ID, flags)
	}

	h.logger.Info("analysis complete",
		"request_id", reqID,
		"report_id", rep.ID,
		"orders", res.Orders,
		"inventory_rows", res.InventoryRows,
		"coercion_issues", len(issues),
		"flags", len(flags),
	)
	return rep, nil
}

// open returns a reader over one upload. With staging enabled the upload is
// first copied into the staging area and read back from there; closing the
// reader removes the staged copy.
func (h *Handler) open(table string, f multipart.File, hdr *multipart.FileHeader) (io.ReadCloser, error) {
	h.metrics.RecordUpload(table, hdr.Size)
	if h.staging == nil {
		return io.NopCloser(f), nil
	}

	e, err := h.staging.Put(hdr.Filename, f)
	if err != nil {
		return nil, err
	}
	h.metrics.SetStagedFiles(h.staging.Count())

	sf, err := h.staging.Open(e.ID)
	if err != nil {
		h.unstage(e.ID)
		return nil, err
	}
	return &stagedFile{File: sf, onClose: func() { h.unstage(e.ID) }}, nil
}

func (h *Handler) unstage(id string) {
	if err := h.staging.Remove(id); err != nil {
		h.logger.Warn("api: remove staged upload", "id", id, "err", err)
	}
	h.metrics.SetStagedFiles(h.staging.Count())
}

type stagedFile struct {
	*os.File
	onClose func()
}

func (s *stagedFile) Close() error {
	err := s.File.Close()
	s.onClose()
	return err
}

func formatOf(hdr *multipart.FileHeader) ingest.Format {
	return ingest.DetectFormat(hdr.Filename, hdr.Header.Get("Content-Type"))
}
