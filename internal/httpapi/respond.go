package httpapi

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/archive"
	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess"
	"github.com/park285/boardsync/internal/game"
	"github.com/park285/boardsync/pkg/boarddto"
)

// badRequest marks errors caused by request parameters evaluated inside a
// session callback.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func codeInvalid(msg string) boarddto.DomainError {
	return boarddto.DomainError{Code: boarddto.CodeInvalidRequest, Message: msg}
}

func codeNotFound(msg string) boarddto.DomainError {
	return boarddto.DomainError{Code: boarddto.CodeNotFound, Message: msg}
}

func (s *Server) writeErr(ctx *fasthttp.RequestCtx, err error) {
	var br badRequest
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		writeError(ctx, fasthttp.StatusNotFound, codeNotFound(err.Error()))
	case errors.Is(err, game.ErrInvalidSessionID), errors.As(err, &br), errors.Is(err, archive.ErrInvalidGame):
		writeError(ctx, fasthttp.StatusBadRequest, codeInvalid(err.Error()))
	case errors.Is(err, board.ErrMalformedPosition), errors.Is(err, chess.ErrIllegalPosition):
		writeError(ctx, fasthttp.StatusUnprocessableEntity, boarddto.DomainError{Code: boarddto.CodeMalformedPosition, Message: err.Error()})
	case errors.Is(err, game.ErrTooManySessions):
		writeError(ctx, fasthttp.StatusTooManyRequests, boarddto.DomainError{Code: boarddto.CodeTooManySessions, Message: err.Error(), Retryable: true})
	case errors.Is(err, game.ErrEngine), errors.Is(err, context.DeadlineExceeded):
		s.log.Warn("engine_error", zap.String("path", string(ctx.Path())), zap.Error(err))
		writeError(ctx, fasthttp.StatusBadGateway, boarddto.DomainError{Code: boarddto.CodeEngineFailure, Message: err.Error(), Retryable: true})
	default:
		s.log.Error("request_error", zap.String("path", string(ctx.Path())), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, boarddto.DomainError{Code: boarddto.CodeInternal, Message: "internal error"})
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, de boarddto.DomainError) {
	writeJSON(ctx, status, boarddto.ErrorResponse{Error: de})
}

func methodNotAllowed(ctx *fasthttp.RequestCtx) {
	writeError(ctx, fasthttp.StatusMethodNotAllowed, codeInvalid("method not allowed"))
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"error":{"code":"internal","message":"encode response"}}`)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(raw)
}

// decodeBody accepts an empty body as the zero value.
func decodeBody(ctx *fasthttp.RequestCtx, dst any) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, codeInvalid("invalid json: "+err.Error()))
		return false
	}
	return true
}
