package export

import "fmt"

// DataAccessError reports that the accounts database could not be opened or
// queried, including a missing accounts table or columns.
type DataAccessError struct {
	Path string
	Err  error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("cannot read accounts from %s: %v", e.Path, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// EncodingError reports an account whose provisioning URI does not fit in a QR code.
type EncodingError struct {
	Name     string
	Username string
	Err      error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode QR code for %q (%q): %v", e.Name, e.Username, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// IOError reports a failure creating the output directory or writing an image.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// VerifyError reports a written image whose QR code does not read back as the
// URI it was generated from. The URIs are kept off the message since they
// carry the secret.
type VerifyError struct {
	Path string
	Want string
	Got  string
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification of %s failed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("verification of %s failed: decoded text does not match the provisioning URI", e.Path)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}
