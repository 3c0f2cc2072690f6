package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/tu-usuario/lotes-api/internal/domain"
)

// ProductLocker serializa las mutaciones por producto: un token exclusivo por
// product_id, productos distintos avanzan en paralelo. La espera está acotada;
// al vencer el plazo la operación falla con ErrLockTimeout (reintentable por el
// caller) en lugar de bloquearse indefinidamente.
type ProductLocker struct {
	mu      sync.Mutex
	tokens  map[string]chan struct{}
	timeout time.Duration
}

// NewProductLocker construye el locker con el plazo máximo de espera por lock.
func NewProductLocker(timeout time.Duration) *ProductLocker {
	return &ProductLocker{
		tokens:  make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (l *ProductLocker) token(productID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.tokens[productID]
	if !ok {
		// Un slot por producto; el mapa crece con el catálogo y no se poda.
		ch = make(chan struct{}, 1)
		l.tokens[productID] = ch
	}
	return ch
}

// Acquire toma el lock exclusivo del producto y devuelve la función de
// liberación. Si el contexto se cancela antes de obtenerlo, la petición se
// descarta sin tocar estado; una vez adquirido, la unidad de trabajo en curso
// se completa aunque el caller se cancele (el ejecutor usa un contexto sin
// cancelación para la transacción).
func (l *ProductLocker) Acquire(ctx context.Context, productID string) (release func(), err error) {
	ch := l.token(productID)
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, domain.ErrLockTimeout
	}
}
