package claude

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/graymont/bidpipe/internal/core/domain"
)

// wrapCallError tags transient transport conditions as ErrTemporary so
// the orchestrator can distinguish "worth re-running the pass" from a
// hard failure. Classification only; retry never happens here.
func wrapCallError(kind domain.ResponseKind, err error) error {
	operation := fmt.Sprintf("claude %s call", kind)

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
