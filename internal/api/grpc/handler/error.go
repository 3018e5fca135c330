package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/store"
)

func handleError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, model.ErrEmptyCredentials):
		return status.Error(codes.InvalidArgument, model.ErrEmptyCredentials.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, model.ErrInvalidCredentials.Error())
	case errors.Is(err, model.ErrSessionLoading):
		return status.Error(codes.Unavailable, model.ErrSessionLoading.Error())
	case errors.Is(err, store.ErrLoading):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, model.ErrLoginSuperseded):
		return status.Error(codes.Aborted, model.ErrLoginSuperseded.Error())
	case errors.Is(err, model.ErrUnknownRoute), errors.Is(err, model.ErrUnknownDomain):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrStoreUnavailable), errors.Is(err, model.ErrTreeNotBuilt),
		errors.Is(err, model.ErrNoIdentity):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, store.ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
