package internal

// Handler produces a response for a request.
// Route handlers and the "rest of the chain" handle passed to middleware
// both implement it.
//
// Returning a non-nil error is a fault: it propagates up through every
// enclosing middleware until an ErrorBoundary converts it into a response.
//
// Example:
//
//	type GetUser struct {
//	    repo *repository.Queries
//	}
//
//	func (h *GetUser) Handle(req *conveyor.Request) (*conveyor.Response, error) {
//	    user, err := h.repo.GetUser(req.Context(), req.Param("id"))
//	    if err != nil {
//	        return nil, err
//	    }
//	    return conveyor.JSON(http.StatusOK, user)
//	}
type Handler interface {
	Handle(req *Request) (*Response, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(req *Request) (*Response, error)

// Handle calls f(req).
func (f HandlerFunc) Handle(req *Request) (*Response, error) {
	return f(req)
}

// Middleware is a unit of the onion chain.
// Process may inspect or replace the request, call next.Handle at most once,
// inspect or replace the resulting response, or short-circuit by returning
// its own response without calling next.
//
// Example:
//
//	func AuthCheck() conveyor.MiddlewareFunc {
//	    return func(req *conveyor.Request, next conveyor.Handler) (*conveyor.Response, error) {
//	        if req.Header("Authorization") == "" {
//	            return conveyor.Text(http.StatusUnauthorized, "unauthorized"), nil
//	        }
//	        return next.Handle(req)
//	    }
//	}
type Middleware interface {
	Process(req *Request, next Handler) (*Response, error)
}

// MiddlewareFunc adapts a plain two-argument function to the Middleware interface.
type MiddlewareFunc func(req *Request, next Handler) (*Response, error)

// Process calls f(req, next).
func (f MiddlewareFunc) Process(req *Request, next Handler) (*Response, error) {
	return f(req, next)
}

// terminalMiddleware places a Handler in a middleware position.
// It never calls next.
type terminalMiddleware struct {
	h Handler
}

func (m terminalMiddleware) Process(req *Request, _ Handler) (*Response, error) {
	return m.h.Handle(req)
}

// Controller declares routes on a router.
//
// Example:
//
//	type UsersController struct {
//	    repo *repository.Queries
//	}
//
//	func (c *UsersController) Routes(r conveyor.Router) {
//	    r.GET("/users/{id}", conveyor.Instance(&GetUser{repo: c.repo}))
//	    r.POST("/users", conveyor.Named("users.create"), conveyor.Named("auth"))
//	}
type Controller interface {
	Routes(r Router)
}
