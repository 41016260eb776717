package i18n

import "golang.org/x/text/language"

// messages maps an English message key to its translations.
var messages = map[string]map[language.Tag]string{
	"authentication required": {
		language.Spanish: "se requiere autenticación",
		language.French:  "authentification requise",
	},
	"invalid credentials": {
		language.Spanish: "credenciales inválidas",
		language.French:  "identifiants invalides",
	},
	"invalid or expired token": {
		language.Spanish: "token inválido o caducado",
		language.French:  "jeton invalide ou expiré",
	},
	"two-factor code required": {
		language.Spanish: "se requiere el código de dos factores",
		language.French:  "code à deux facteurs requis",
	},
	"invalid two-factor code": {
		language.Spanish: "código de dos factores inválido",
		language.French:  "code à deux facteurs invalide",
	},
	"invalid request body": {
		language.Spanish: "cuerpo de la solicitud inválido",
		language.French:  "corps de requête invalide",
	},
	"user not found": {
		language.Spanish: "usuario no encontrado",
		language.French:  "utilisateur introuvable",
	},
	"post not found": {
		language.Spanish: "publicación no encontrada",
		language.French:  "publication introuvable",
	},
	"comment not found": {
		language.Spanish: "comentario no encontrado",
		language.French:  "commentaire introuvable",
	},
	"parent comment not found": {
		language.Spanish: "comentario padre no encontrado",
		language.French:  "commentaire parent introuvable",
	},
	"community not found": {
		language.Spanish: "comunidad no encontrada",
		language.French:  "communauté introuvable",
	},
	"event not found": {
		language.Spanish: "evento no encontrado",
		language.French:  "événement introuvable",
	},
	"complaint not found": {
		language.Spanish: "queja no encontrada",
		language.French:  "plainte introuvable",
	},
	"reaction not found": {
		language.Spanish: "reacción no encontrada",
		language.French:  "réaction introuvable",
	},
	"resource not found": {
		language.Spanish: "recurso no encontrado",
		language.French:  "ressource introuvable",
	},
	"you can only edit your own content": {
		language.Spanish: "solo puedes editar tu propio contenido",
		language.French:  "vous ne pouvez modifier que votre propre contenu",
	},
	"you can only delete your own content": {
		language.Spanish: "solo puedes eliminar tu propio contenido",
		language.French:  "vous ne pouvez supprimer que votre propre contenu",
	},
	"comments can only be edited within 15 minutes": {
		language.Spanish: "los comentarios solo se pueden editar durante 15 minutos",
		language.French:  "les commentaires ne peuvent être modifiés que pendant 15 minutes",
	},
	"admin access required": {
		language.Spanish: "se requiere acceso de administrador",
		language.French:  "accès administrateur requis",
	},
	"already exists": {
		language.Spanish: "ya existe",
		language.French:  "existe déjà",
	},
	"rate limit exceeded": {
		language.Spanish: "límite de solicitudes excedido",
		language.French:  "limite de requêtes dépassée",
	},
	"service unavailable": {
		language.Spanish: "servicio no disponible",
		language.French:  "service indisponible",
	},
	"internal server error": {
		language.Spanish: "error interno del servidor",
		language.French:  "erreur interne du serveur",
	},
	"We received your report": {
		language.Spanish: "Hemos recibido tu denuncia",
		language.French:  "Nous avons bien reçu votre signalement",
	},
	"Thanks for reporting a %s. Our moderators will review it (reason: %s, reference %s).": {
		language.Spanish: "Gracias por denunciar un %s. Nuestros moderadores lo revisarán (motivo: %s, referencia %s).",
		language.French:  "Merci d'avoir signalé un %s. Nos modérateurs vont l'examiner (motif : %s, référence %s).",
	},
	"account already exists": {
		language.Spanish: "la cuenta ya existe",
		language.French:  "le compte existe déjà",
	},
	"username already taken": {
		language.Spanish: "el nombre de usuario ya está en uso",
		language.French:  "ce nom d'utilisateur est déjà pris",
	},
	"invalid input": {
		language.Spanish: "entrada inválida",
		language.French:  "saisie invalide",
	},
	"unsupported file type": {
		language.Spanish: "tipo de archivo no admitido",
		language.French:  "type de fichier non pris en charge",
	},
	"file too large": {
		language.Spanish: "archivo demasiado grande",
		language.French:  "fichier trop volumineux",
	},
	"two-factor setup not started": {
		language.Spanish: "la configuración de dos factores no ha comenzado",
		language.French:  "la configuration à deux facteurs n'a pas commencé",
	},
	"forbidden": {
		language.Spanish: "prohibido",
		language.French:  "interdit",
	},
	"parent comment must belong to the same post": {
		language.Spanish: "el comentario padre debe pertenecer a la misma publicación",
		language.French:  "le commentaire parent doit appartenir à la même publication",
	},
	"you cannot follow yourself": {
		language.Spanish: "no puedes seguirte a ti mismo",
		language.French:  "vous ne pouvez pas vous suivre vous-même",
	},
}
