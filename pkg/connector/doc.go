// Package connector talks to the backend of the Neos content editing
// interface.
//
// Every endpoint of the backend is one method on Client. Methods return
// fully validated typed values or one of these errors:
//
//	*TransportError          the request never completed
//	*UnexpectedStatusError   the backend answered with an undocumented status
//	*DecodeError             a JSON payload did not parse or lacked a required value
//	*FieldMissingError       an HTML fragment lacked a required structural marker
//	ErrAuthenticationRequired no anti-forgery token is known; nothing was sent
//
// Nothing is retried. Login is the exception to the error channel: a refused
// login is reported as ("", false).
//
// # Connecting
//
//	c, err := connector.New("https://neos.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, ok := c.Login(ctx, "editor", "secret"); !ok {
//	    log.Fatal("login refused")
//	}
//
// Login stores the anti-forgery token in the client's TokenProvider. Every
// mutating call picks it up at request build time. A session started from an
// existing page can pass the token directly:
//
//	c, _ := connector.New(baseURL, connector.WithToken(csrfToken))
//
// # Publishing
//
//	fb, err := c.Publish(ctx, []string{"/sites/demo/about@user-admin"}, "live")
//
// # Looking up a node
//
// GetSingleNode distinguishes a found node from one that is missing in the
// requested dimensions:
//
//	lookup, err := c.GetSingleNode(ctx, id, map[string]any{"workspaceName": "user-admin"})
//	switch n := lookup.(type) {
//	case connector.NodeFound:
//	    fmt.Println(n.ContextPath)
//	case connector.NodeNotFound:
//	    if n.ExistsInOtherDimensions {
//	        // offer AdoptNodeToOtherDimension
//	    }
//	}
//
// # Routes
//
// The backend addresses come from a Routes table, DefaultRoutes unless
// replaced with WithRoutes or WithRoute. The table is validated once in New.
package connector
