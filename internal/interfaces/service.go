package interfaces

// Service interface defines the methods that every interface exposing the
// vault services must be compliant with.
type Service interface {
	Start() error
	Stop()
}
