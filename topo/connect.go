package topo

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"github.com/percona/linkseq/config"
	"github.com/percona/linkseq/errors"
	"github.com/percona/linkseq/log"
)

// ConnectOptions tunes the client beyond what the connection string allows.
type ConnectOptions struct {
	// AppName is reported to the server unless the URI sets appName.
	AppName     string
	Compressors []string
}

// Connect establishes a connection to a MongoDB instance using the provided URI.
// If the URI is empty, it returns an error.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	return ConnectWithOptions(ctx, uri, &ConnectOptions{})
}

// ConnectWithOptions establishes a connection to a MongoDB instance using the provided URI
// and options.
// If the URI is empty, it returns an error.
func ConnectWithOptions(
	ctx context.Context,
	uri string,
	connOpts *ConnectOptions,
) (*mongo.Client, error) {
	opts, err := clientOptions(ctx, uri, connOpts)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	conn, err := mongo.Connect(opts)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	err = withTimeout(ctx, config.PingTimeout, func(ctx context.Context) error {
		return conn.Ping(ctx, nil)
	})
	if err != nil {
		err1 := Disconnect(ctx, conn)
		if err1 != nil {
			log.Warn(ctx, "Disconnect: "+err1.Error())
		}

		return nil, errors.Wrap(err, "ping")
	}

	return conn, nil
}

// clientOptions validates uri and builds the client options used by
// [ConnectWithOptions]. An appName in uri takes precedence over connOpts.AppName.
func clientOptions(
	ctx context.Context,
	uri string,
	connOpts *ConnectOptions,
) (*options.ClientOptions, error) {
	if uri == "" {
		return nil, errors.New("invalid MongoDB URI")
	}

	_, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, errors.Wrap(err, "parse and validate MongoDB URI")
	}

	sanitizedURI, err := sanitizeMongoURI(ctx, uri)
	if err != nil {
		return nil, errors.Wrap(err, "sanitize MongoDB URI")
	}

	opts := options.Client().ApplyURI(sanitizedURI).
		SetServerAPIOptions(
			options.ServerAPI(options.ServerAPIVersion1).
				SetStrict(false).
				SetDeprecationErrors(true)).
		SetReadPreference(readpref.Primary()).
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority()).
		SetTimeout(config.OperationTimeout)

	if connOpts != nil {
		if connOpts.Compressors != nil {
			opts.SetCompressors(connOpts.Compressors)
		}

		if connOpts.AppName != "" && opts.AppName == nil {
			opts.SetAppName(connOpts.AppName)
		}
	}

	if config.MongoLogEnabled {
		opts = opts.SetLoggerOptions(options.Logger().
			SetSink(log.NewMongoLogger(ctx)).
			SetComponentLevel(config.MongoLogComponent, config.MongoLogLevel))
	}

	return opts, nil
}

type disconnecter interface {
	Disconnect(ctx context.Context) error
}

// Disconnect closes the client within [config.DisconnectTimeout]. It is not affected by
// cancellation of ctx.
func Disconnect(ctx context.Context, m disconnecter) error {
	return withTimeout(context.WithoutCancel(ctx), config.DisconnectTimeout, m.Disconnect)
}

func withTimeout(ctx context.Context, dur time.Duration, fn func(context.Context) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, dur)
	defer cancel()

	return fn(timeoutCtx)
}

func sanitizeMongoURI(ctx context.Context, uri string) (string, error) {
	idx := strings.IndexRune(uri, '?')
	if idx == -1 {
		return uri, nil
	}

	pairs := strings.FieldsFunc(uri[idx+1:], func(r rune) bool { return r == '&' || r == ';' })
	allowed := make([]string, 0, len(pairs))
	for _, p := range pairs {
		key, _, _ := strings.Cut(p, "=")

		k, err := url.QueryUnescape(key)
		if err != nil {
			return "", errors.Wrapf(err, "invalid option key %q", key)
		}

		if !slices.Contains(allowedConnStringOptions, strings.ToLower(k)) {
			log.Warnf(ctx, "Connection string option %q is not allowed", key)

			continue
		}

		allowed = append(allowed, p)
	}

	ret := uri[:idx] + "?" + strings.Join(allowed, "&")

	return ret, nil
}

//nolint:gochecknoglobals
var allowedConnStringOptions = []string{
	"appname",
	"replicaset",

	"authsource",
	"authmechanism",
	"authmechanismproperties",
	"gssapiservicename",

	"tls",
	"ssl",
	"tlscertificatekeyfile",
	"tlscertificatekeyfilepassword",
	"tlscafile",
	"tlsallowinvalidcertificates",
	"tlsallowinvalidhostnames",
	"tlsinsecure",
}
