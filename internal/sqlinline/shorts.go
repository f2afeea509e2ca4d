package sqlinline

const QInsertShort = `--sql 7ba60c66-8700-496e-8976-345a7ad93721
insert into shorts (
    id, user_id, theme, language, format, target_duration, style_id, climate_id,
    model_ref, scene_count, scene_duration, confirmed, status, progress, created_at, updated_at
)
values (
    $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::int, $7::text, $8::text,
    nullif($9::text, ''), $10::int, $11::int, $12::jsonb, $13::text, 0, now(), now()
)
returning created_at, updated_at;
`

const QSelectShortByID = `--sql d8712246-6603-46e9-b57e-117c22e593e7
select
    id::text,
    user_id,
    theme,
    language,
    format,
    target_duration,
    style_id,
    climate_id,
    coalesce(model_ref, ''),
    scene_count,
    scene_duration,
    confirmed,
    status,
    progress,
    coalesce(title, ''),
    coalesce(hook, ''),
    coalesce(cta, ''),
    script,
    credits_used,
    coalesce(error_message, ''),
    created_at,
    updated_at,
    completed_at
from shorts
where id = $1::uuid
limit 1;
`

const QSelectShortStatus = `--sql 878ccd8b-ed01-4aeb-b03a-a45d4174af0f
select status
from shorts
where id = $1::uuid
limit 1;
`

// QBeginShortRun flips a short into a running status only when it is idle.
const QBeginShortRun = `--sql 31521871-8337-4781-8900-253cd8267b48
update shorts
set status = $2::text,
    progress = $3::int,
    error_message = null,
    completed_at = null,
    updated_at = now()
where id = $1::uuid
  and status in ('DRAFT', 'FAILED')
returning id::text;
`

const QUpdateShortStatus = `--sql 1bb0a3a6-18e8-43be-92b2-3acd47dd826c
update shorts
set status = coalesce(nullif($2::text, ''), status),
    progress = coalesce($3::int, progress),
    error_message = coalesce($4::text, error_message),
    credits_used = coalesce($5::int, credits_used),
    completed_at = coalesce($6::timestamptz, completed_at),
    updated_at = now()
where id = $1::uuid;
`

const QLockShortForScript = `--sql f6fa9e07-0d9a-4b5c-aaf4-34b5f0c4be5c
select
    s.id::text,
    (select count(*) from scenes sc where sc.short_id = s.id) as scene_count
from shorts s
where s.id = $1::uuid
for update of s;
`

const QSaveShortScript = `--sql 51e48161-9b6f-426a-ae76-1e0cb7e52919
update shorts
set title = $2::text,
    hook = $3::text,
    cta = $4::text,
    script = $5::jsonb,
    progress = $6::int,
    updated_at = now()
where id = $1::uuid;
`

const QFailStaleShorts = `--sql 5568dd7f-ac69-4766-aa83-03b239067c89
update shorts
set status = 'FAILED',
    error_message = $2::text,
    updated_at = now()
where status in ('SCRIPTING', 'PROMPTING', 'GENERATING')
  and updated_at < $1::timestamptz
returning id::text;
`
