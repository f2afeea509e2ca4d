package sqlinline

const QInsertScene = `--sql b3ee3717-3529-474e-ab74-6eae778762e1
insert into scenes (
    id, short_id, scene_order, duration, narration, visual_desc, goal,
    image_prompt, negative_prompt, is_generated, created_at, updated_at
)
values ($1::uuid, $2::uuid, $3::int, $4::int, $5::text, $6::text, $7::text, '', '', false, now(), now());
`

const QSelectScenesByShort = `--sql 1e308ce4-a30b-4db4-840b-56a1a32ba6d8
select
    id::text,
    short_id::text,
    scene_order,
    duration,
    narration,
    visual_desc,
    goal,
    image_prompt,
    negative_prompt,
    coalesce(media_url, ''),
    coalesce(width, 0),
    coalesce(height, 0),
    is_generated,
    coalesce(error_message, ''),
    created_at,
    updated_at
from scenes
where short_id = $1::uuid
order by scene_order asc;
`

const QUpdateScenePrompt = `--sql a734479a-546c-4123-942c-fd136d2acf1b
update scenes
set image_prompt = $2::text,
    negative_prompt = $3::text,
    updated_at = now()
where id = $1::uuid;
`

const QUpdateSceneMedia = `--sql f7d92e33-4987-4497-8388-f13f69b1e4b0
update scenes
set media_url = nullif($2::text, ''),
    width = $3::int,
    height = $4::int,
    is_generated = $5::boolean,
    error_message = nullif($6::text, ''),
    updated_at = now()
where id = $1::uuid;
`
