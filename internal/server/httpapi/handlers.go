package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/taskhub/internal/server/services"
	"github.com/dmitrijs2005/taskhub/internal/validation"
)

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeForm(w, r)
	if !ok {
		return
	}

	u, err := a.users.Register(r.Context(), services.RegisterInput{
		UserName:  f.str("username"),
		Password:  f.str("password"),
		Password2: f.str("password2"),
		Email:     f.str("email"),
		Mobile:    f.optStr("mobile"),
		FirstName: f.str("first_name"),
		LastName:  f.str("last_name"),
		Invalid:   f.errs,
	})
	if err != nil {
		a.handleError(r.Context(), w, "register", err)
		return
	}

	a.logger.Info(r.Context(), "user registered", "user_id", u.ID, "request_id", RequestID(r.Context()))
	writeJSON(w, http.StatusCreated, registerResponse{UserID: u.ID, UserName: u.UserName, Email: u.Email})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeForm(w, r)
	if !ok {
		return
	}

	userName, password := f.str("username"), f.str("password")
	f.errs.Field("username", userName, validation.Required)
	f.errs.Field("password", password, validation.Required)
	if f.errs.HasErrors() {
		writeValidationErrors(w, f.errs)
		return
	}

	res, err := a.users.Login(r.Context(), userName, password)
	if err != nil {
		a.handleError(r.Context(), w, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Access:  res.AccessToken,
		Refresh: res.RefreshToken,
		User: loginUser{
			ID:       res.User.ID,
			Name:     res.User.Name(),
			Email:    res.User.Email,
			UserName: res.User.UserName,
		},
	})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	errs := validation.Errors{}
	errs.Field("refresh", req.Refresh, validation.Required)
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	access, err := a.users.Refresh(r.Context(), req.Refresh)
	if err != nil {
		a.handleError(r.Context(), w, "refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{Access: access})
}
