package crm

// User-facing texts shown by the console and the CLI.
const (
	msgNoConnection   = "Server bilan aloqa yo'q. Internetni tekshiring"
	msgBadCredentials = "Telefon raqam yoki parol noto'g'ri"
	msgUserNotFound   = "Bunday foydalanuvchi topilmadi"
	msgUserInactive   = "Foydalanuvchi faol emas"
	msgSessionExpired = "Sessiya muddati tugagan. Qayta kiring"
	msgForbidden      = "Bu amal uchun ruxsat yo'q"
	msgNotFound       = "Ma'lumot topilmadi"
	msgServerError    = "Serverda xatolik yuz berdi"
	msgUserRequired   = "Foydalanuvchi ko'rsatilmagan"
	msgValidation     = "Ma'lumotlar noto'g'ri kiritilgan"
	msgNoToken        = "Serverdan token olinmadi"
	msgCanceled       = "So'rov bekor qilindi"
)

// loginMessages maps known backend substrings to translated texts.
var loginMessages = []struct {
	substr string
	text   string
}{
	{"no active account", msgBadCredentials},
	{"invalid credentials", msgBadCredentials},
	{"incorrect", msgBadCredentials},
	{"password", msgBadCredentials},
	{"not found", msgUserNotFound},
	{"does not exist", msgUserNotFound},
	{"inactive", msgUserInactive},
	{"disabled", msgUserInactive},
}
