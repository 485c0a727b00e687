package identity

import "errors"

var (
	ErrBadRequest      = errors.New("bad request")
	ErrNotFound        = errors.New("user not found")
	ErrMalformed       = errors.New("malformed user document")
	ErrBadCredential   = errors.New("invalid credential")
	ErrTooManyAttempts = errors.New("too many failed attempts")
	ErrSignInFailed    = errors.New("sign-in failed")
	ErrEmailInUse      = errors.New("email already in use")
	ErrWeakPassword    = errors.New("password too weak")
	ErrRegisterFailed  = errors.New("registration failed")
)

const (
	LangTurkish = "tr"
	LangEnglish = "en"
)

var messages = map[string]map[error]string{
	LangTurkish: {
		ErrBadCredential:   "Hatalı email veya şifre.",
		ErrTooManyAttempts: "Çok fazla başarısız deneme. Lütfen biraz bekleyin.",
		ErrSignInFailed:    "Giriş başarısız. Lütfen tekrar deneyin.",
		ErrEmailInUse:      "Bu email adresi zaten kullanımda.",
		ErrWeakPassword:    "Şifre çok zayıf (en az 6 karakter).",
		ErrRegisterFailed:  "Kayıt başarısız. Lütfen tekrar deneyin.",
	},
	LangEnglish: {
		ErrBadCredential:   "Invalid email or password.",
		ErrTooManyAttempts: "Too many failed attempts. Please wait a moment.",
		ErrSignInFailed:    "Sign-in failed. Please try again.",
		ErrEmailInUse:      "This email address is already in use.",
		ErrWeakPassword:    "Password is too weak (at least 6 characters).",
		ErrRegisterFailed:  "Registration failed. Please try again.",
	},
}

// Message maps an identity error to the user-facing text in lang. Unknown
// languages fall back to Turkish, unknown errors to the generic sign-in text.
func Message(err error, lang string) string {
	table, ok := messages[lang]
	if !ok {
		table = messages[LangTurkish]
	}
	for _, known := range []error{ErrBadCredential, ErrTooManyAttempts, ErrEmailInUse, ErrWeakPassword, ErrRegisterFailed, ErrSignInFailed} {
		if errors.Is(err, known) {
			return table[known]
		}
	}
	return table[ErrSignInFailed]
}
