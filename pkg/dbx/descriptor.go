package dbx

import (
	"fmt"

	"github.com/godbcore/go-db-core/pkg/errorx"
)

// ConnDescriptor identifies a target database. It is immutable once
// constructed and is the unit the pool groups interchangeable connections by:
// two descriptors that differ in any field derive different pool keys, so
// credentials or target differences never cross-contaminate pooled handles.
type ConnDescriptor struct {
	host     string
	port     int32
	dbName   string
	user     string
	password string
	charset  string
}

// NewConnDescriptor - ConnDescriptor constructor.
func NewConnDescriptor(host string, port int32, dbName, user, password, charset string) (ConnDescriptor, error) {
	if dbName == "" {
		return ConnDescriptor{}, errorx.NewGeneralError("Error creating ConnDescriptor: DB_Name is EMPTY")
	}

	if user == "" {
		return ConnDescriptor{}, errorx.NewGeneralError("Error creating ConnDescriptor: DB_User is EMPTY")
	}

	if password == "" {
		return ConnDescriptor{}, errorx.NewGeneralError("Error creating ConnDescriptor: DB_Password is EMPTY")
	}

	return ConnDescriptor{
		host:     host,
		port:     port,
		dbName:   dbName,
		user:     user,
		password: password,
		charset:  charset,
	}, nil
}

// Host - target host.
func (d ConnDescriptor) Host() string { return d.host }

// Port - target port.
func (d ConnDescriptor) Port() int32 { return d.port }

// DBName - target database name.
func (d ConnDescriptor) DBName() string { return d.dbName }

// User - connection user.
func (d ConnDescriptor) User() string { return d.user }

// Password - connection password.
func (d ConnDescriptor) Password() string { return d.password }

// Charset - client character set, empty means driver default.
func (d ConnDescriptor) Charset() string { return d.charset }

// PoolKey derives the stable pool key for this descriptor. The key is a plain
// concatenation of every field, so equality of keys is exactly equality of
// descriptors.
func (d ConnDescriptor) PoolKey() string {
	return fmt.Sprintf("%s:%d/%s/%s/%s/%s", d.host, d.port, d.dbName, d.user, d.password, d.charset)
}

// String - printable form without credentials.
func (d ConnDescriptor) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", d.user, d.host, d.port, d.dbName)
}
